package publish

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameloop/frameloop/internal/blob"
)

func newTestPublisher(t *testing.T) (*Publisher, *blob.MemStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mem := blob.NewMemStore("published")
	return NewPublisher(mem, rdb), mem, mr
}

// stepClock replaces the publisher's clock with one that advances a
// second per publication, so recency ordering is deterministic.
func stepClock(p *Publisher) {
	base := time.Unix(1_700_000_000, 0)
	step := 0
	p.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
}

func TestPublish_WritesBlobAndIndex(t *testing.T) {
	p, mem, _ := newTestPublisher(t)
	ctx := context.Background()

	art, err := p.Publish(ctx, "Spin Cycle", []byte("gif-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(art.Key, "_spin-cycle.gif"), "key %q", art.Key)
	assert.Equal(t, "Spin Cycle", art.Title)
	assert.NotEmpty(t, art.URI)
	assert.Equal(t, 1, mem.Len())

	got, err := p.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, art.Key, got[0].Key)
	assert.Equal(t, art.PublishedAt.UnixNano(), got[0].PublishedAt.UnixNano())
}

// TestRecent_NewestFirst: listing order follows recorded publish time,
// not the store's own iteration order.
func TestRecent_NewestFirst(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	stepClock(p)
	ctx := context.Background()

	first, err := p.Publish(ctx, "First Light", []byte("a"))
	require.NoError(t, err)
	second, err := p.Publish(ctx, "Second Wind", []byte("b"))
	require.NoError(t, err)
	third, err := p.Publish(ctx, "Third Act", []byte("c"))
	require.NoError(t, err)

	got, err := p.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, third.Key, got[0].Key)
	assert.Equal(t, second.Key, got[1].Key)
	assert.Equal(t, first.Key, got[2].Key)
}

func TestRecent_LimitsResults(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	stepClock(p)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := p.Publish(ctx, title, []byte("x"))
		require.NoError(t, err)
	}

	got, err := p.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Title)

	got, err = p.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestPublish_IndexWriteFailureFailsPublication: a stored blob whose
// index write fails must be reported as a failed publication, and the
// gallery never lists it.
func TestPublish_IndexWriteFailureFailsPublication(t *testing.T) {
	p, mem, mr := newTestPublisher(t)
	ctx := context.Background()

	mr.SetError("index unavailable")
	_, err := p.Publish(ctx, "Lost Reel", []byte("gif-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index artifact")

	// The orphaned blob stays behind for operators, invisible to listing.
	mr.SetError("")
	assert.Equal(t, 1, mem.Len())
	got, err := p.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "three-act-structure", slug("Three Act Structure"))
	assert.Equal(t, "spin-cycle", slug("  Spin Cycle  "))
	assert.Equal(t, "100-loops", slug("100% Loops!"))
}

func TestTitleFromKey(t *testing.T) {
	assert.Equal(t, "three act structure", titleFromKey("2f1c-4d_three-act-structure.gif"))
	assert.Equal(t, "noext", titleFromKey("abc_noext"))
	assert.Equal(t, "plain", titleFromKey("plain.gif"))
}
