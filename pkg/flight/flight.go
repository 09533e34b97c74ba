package flight

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Guard serialises mutating operations per key. A second caller for the same
// key while one is outstanding is rejected immediately instead of queued, so
// double-submissions surface as a distinct failure rather than a duplicate
// write.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGuard constructs an empty guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// Key builds the canonical guard key for an entity and operation family.
func Key(entityID, operation string) string {
	return fmt.Sprintf("%s:%s", entityID, operation)
}

// Acquire marks the key as in flight. It returns false when a prior call for
// the same key has not released yet.
func (g *Guard) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// Release clears the in-flight marker for the key.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

// Busy reports whether the key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[key]
	return busy
}

// Fetcher collapses concurrent reads for the same key into a single call.
// Unlike Guard, duplicate callers are not rejected: they wait and share the
// first call's result.
type Fetcher struct {
	group singleflight.Group
}

// NewFetcher constructs a fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{}
}

// Do executes fn under the key, deduplicating concurrent invocations. The
// shared return value reports whether this caller piggybacked on another
// in-flight call.
func (f *Fetcher) Do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	result := f.group.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-result:
		return res.Val, res.Shared, res.Err
	}
}
