// Package publish writes synthesized artifacts to the published bucket
// and maintains the gallery's recency index in Redis.
package publish

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frameloop/frameloop/internal/blob"
	"github.com/frameloop/frameloop/internal/model"
)

// Publisher persists artifacts and serves the gallery listing.
type Publisher struct {
	blobs blob.Store
	rdb   *redis.Client
	now   func() time.Time // swapped in tests
}

// NewPublisher creates the publisher over the published bucket.
func NewPublisher(blobs blob.Store, rdb *redis.Client) *Publisher {
	return &Publisher{blobs: blobs, rdb: rdb, now: time.Now}
}

// Publish stores the artifact under a uuid-qualified name and records it
// in the recency index. Publication is complete only once both writes
// succeed; an indexed-but-unwritten or written-but-unindexed artifact is
// reported as a failure so the assembler keeps its source occupants.
func (p *Publisher) Publish(ctx context.Context, title string, data []byte) (model.Artifact, error) {
	now := p.now()
	key := uuid.New().String() + "_" + slug(title) + ".gif"

	uri, err := p.blobs.Put(ctx, key, data, "image/gif", map[string]string{"title": title})
	if err != nil {
		return model.Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	err = p.rdb.ZAdd(ctx, model.PublishedIndexKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: key,
	}).Err()
	if err != nil {
		// The blob exists but is invisible to the gallery; leave it for
		// operators and fail the publication so sources are retained.
		log.Printf("[publish] index write failed for %s: %v", key, err)
		return model.Artifact{}, fmt.Errorf("index artifact: %w", err)
	}

	return model.Artifact{
		Key:         key,
		Title:       title,
		URI:         uri,
		PublishedAt: now,
	}, nil
}

// Recent returns up to n published artifacts, newest first, ordered by
// recorded publish time rather than bucket listing order.
func (p *Publisher) Recent(ctx context.Context, n int) ([]model.Artifact, error) {
	if n <= 0 {
		return []model.Artifact{}, nil
	}
	entries, err := p.rdb.ZRevRangeWithScores(ctx, model.PublishedIndexKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recency index: %w", err)
	}

	artifacts := make([]model.Artifact, 0, len(entries))
	for _, entry := range entries {
		key, ok := entry.Member.(string)
		if !ok {
			continue
		}
		artifacts = append(artifacts, model.Artifact{
			Key:         key,
			Title:       titleFromKey(key),
			URI:         p.blobs.URL(key),
			PublishedAt: time.Unix(0, int64(entry.Score)),
		})
	}
	return artifacts, nil
}

// slug makes a title safe for use inside an object key.
func slug(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, title)
}

// titleFromKey reverses the "<uuid>_<slug>.gif" naming well enough for
// listing purposes.
func titleFromKey(key string) string {
	name := strings.TrimSuffix(key, ".gif")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, "-", " ")
}
