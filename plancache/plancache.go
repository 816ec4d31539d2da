// Package plancache implements the gateway's PlanCache contract (spec.md
// §6): a digest-keyed store of serialized Plans, read before planning and
// written after, so repeat queries skip re-planning entirely.
package plancache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PlanCache is the external collaborator the gateway consults around
// plan.Plan. onCacheRead returns the empty string and ok=false on a miss;
// onCacheWrite is best-effort and never returns an error, matching the
// fire-and-forget hook shape spec.md §6 describes.
type PlanCache interface {
	OnCacheRead(ctx context.Context, digest string) (planJSON string, ok bool)
	OnCacheWrite(ctx context.Context, digest, planJSON string)
}

// NoopCache never caches anything. It is the Gateway's default.
type NoopCache struct{}

func (NoopCache) OnCacheRead(ctx context.Context, digest string) (string, bool) { return "", false }
func (NoopCache) OnCacheWrite(ctx context.Context, digest, planJSON string)     {}

var _ PlanCache = NoopCache{}

// LRUCache is a bounded, concurrency-safe PlanCache backed by
// hashicorp/golang-lru, whose Cache type is itself safe for concurrent use
// (spec.md §5 "PlanCache... must be safe for concurrent reads/writes");
// access is additionally serialized by mu.
type LRUCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, string]
}

// NewLRUCache builds an LRUCache holding at most size plans. size must be
// positive.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) OnCacheRead(ctx context.Context, digest string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(digest)
}

func (c *LRUCache) OnCacheWrite(ctx context.Context, digest, planJSON string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(digest, planJSON)
}

var _ PlanCache = (*LRUCache)(nil)
