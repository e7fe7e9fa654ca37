package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("b")

	uri, err := s.Put(ctx, "k", []byte("data"), "image/png", map[string]string{"role": "start"})
	require.NoError(t, err)
	assert.Equal(t, "mem://b/k", uri)

	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// idempotent
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestMemStore_ListMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("b")

	_, err := s.Put(ctx, "a", []byte("1"), "image/png", map[string]string{"role": "start"})
	require.NoError(t, err)
	_, err = s.Put(ctx, "b", []byte("2"), "image/png", map[string]string{"role": "end"})
	require.NoError(t, err)

	objects, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "start", objects[0].Metadata["role"])
	assert.Equal(t, "end", objects[1].Metadata["role"])
}

// TestFoldMetadata: listing surfaces user metadata under header casing;
// the fold restores the bare lower-case keys used on Put.
func TestFoldMetadata(t *testing.T) {
	got := foldMetadata(map[string]string{
		"X-Amz-Meta-Role":  "middle",
		"X-Amz-Meta-Title": "Spin Cycle",
	})
	assert.Equal(t, "middle", got["role"])
	assert.Equal(t, "Spin Cycle", got["title"])

	assert.Nil(t, foldMetadata(nil))
}
