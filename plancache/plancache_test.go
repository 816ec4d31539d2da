package plancache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphstitch/graphstitch/plancache"
)

func TestNoopCacheNeverHits(t *testing.T) {
	c := plancache.NoopCache{}
	c.OnCacheWrite(context.Background(), "digest", "plan-json")

	_, ok := c.OnCacheRead(context.Background(), "digest")
	assert.False(t, ok)
}

func TestLRUCacheReadsBackWhatItWrites(t *testing.T) {
	c, err := plancache.NewLRUCache(2)
	require.Nil(t, err)

	c.OnCacheWrite(context.Background(), "digest-1", "plan-1")

	planJSON, ok := c.OnCacheRead(context.Background(), "digest-1")
	require.True(t, ok)
	assert.Equal(t, "plan-1", planJSON)

	_, ok = c.OnCacheRead(context.Background(), "missing")
	assert.False(t, ok)
}

func TestLRUCacheEvictsOldestBeyondSize(t *testing.T) {
	c, err := plancache.NewLRUCache(1)
	require.Nil(t, err)

	c.OnCacheWrite(context.Background(), "digest-1", "plan-1")
	c.OnCacheWrite(context.Background(), "digest-2", "plan-2")

	_, ok := c.OnCacheRead(context.Background(), "digest-1")
	assert.False(t, ok)

	planJSON, ok := c.OnCacheRead(context.Background(), "digest-2")
	require.True(t, ok)
	assert.Equal(t, "plan-2", planJSON)
}
