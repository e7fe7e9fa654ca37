// Package slot is the role slot store: validated, normalized images
// held under one of the three roles until the assembler consumes them.
package slot

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/frameloop/frameloop/internal/blob"
	"github.com/frameloop/frameloop/internal/model"
)

// roleMetaKey is the user-metadata key carrying the role tag.
const roleMetaKey = "role"

// Store persists occupants in the slot bucket, tagged by role.
// The backing bucket is the single source of truth; nothing is cached here.
type Store struct {
	blobs blob.Store
}

// NewStore creates a slot store over the given bucket.
func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Put writes a normalized image under a fresh uuid-prefixed key so
// repeated uploads of the same filename never collide or overwrite.
// A failed write leaves no occupant visible under the role.
func (s *Store) Put(ctx context.Context, role model.Role, data []byte, filename string) (model.Occupant, error) {
	key := uuid.New().String() + "_" + filename
	uri, err := s.blobs.Put(ctx, key, data, "image/png", map[string]string{roleMetaKey: role.String()})
	if err != nil {
		return model.Occupant{}, fmt.Errorf("put occupant role=%s: %w", role, err)
	}
	return model.Occupant{Key: key, Role: role, URI: uri}, nil
}

// FindOne returns one current occupant of the role, chosen uniformly at
// random among all matches, or (nil, nil) when the role is empty. Random
// selection (not oldest-first) decides which image survives when uploads
// outpace assembly. Cost is O(pending occupants) per call.
func (s *Store) FindOne(ctx context.Context, role model.Role) (*model.Occupant, error) {
	keys, err := s.keysByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	key := keys[rand.Intn(len(keys))]
	return &model.Occupant{Key: key, Role: role, URI: s.blobs.URL(key)}, nil
}

// Get fetches an occupant's bytes.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.blobs.Get(ctx, key)
}

// Delete removes an occupant. Deleting a missing key is not an error,
// so racing deletes of the same id are absorbed.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.blobs.Delete(ctx, key)
}

// Occupancy reports current occupant keys per role (health + admin).
func (s *Store) Occupancy(ctx context.Context) (map[model.Role][]string, error) {
	out := make(map[model.Role][]string, len(model.Roles))
	for _, role := range model.Roles {
		out[role] = []string{}
	}
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list occupants: %w", err)
	}
	for _, obj := range objects {
		role := model.Role(obj.Metadata[roleMetaKey])
		if _, ok := out[role]; ok {
			out[role] = append(out[role], obj.Key)
		}
	}
	return out, nil
}

func (s *Store) keysByRole(ctx context.Context, role model.Role) ([]string, error) {
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list occupants: %w", err)
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Metadata[roleMetaKey] == role.String() {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}
