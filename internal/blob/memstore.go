package blob

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by tests. It mirrors the MinIO
// wrapper's observable behavior: all-or-nothing puts, idempotent deletes,
// lower-cased metadata keys on listing.
type MemStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject

	// FailPuts makes every Put return an error, for backend-failure tests.
	FailPuts bool
}

type memObject struct {
	data     []byte
	metadata map[string]string
}

// NewMemStore creates an empty in-memory bucket.
func NewMemStore(bucket string) *MemStore {
	return &MemStore{
		bucket:  bucket,
		objects: make(map[string]memObject),
	}
}

func (s *MemStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *MemStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return "", context.DeadlineExceeded
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	s.objects[key] = memObject{data: cp, metadata: md}
	return s.URL(key), nil
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (s *MemStore) List(ctx context.Context) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, 0, len(s.objects))
	for key, obj := range s.objects {
		md := make(map[string]string, len(obj.metadata))
		for k, v := range obj.metadata {
			md[k] = v
		}
		out = append(out, Object{Key: key, Metadata: md})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemStore) URL(key string) string {
	return "mem://" + s.bucket + "/" + key
}

// Len reports the number of stored objects (test helper).
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
