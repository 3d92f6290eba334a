package services

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/services"
)

// BinaryCache maps canonical paths to shared Binaries for one scan session.
// Each path is analyzed at most once: the first caller inserts an in-progress
// entry and later callers for the same path wait on it.
type BinaryCache struct {
	evaluator services.BinaryEvaluator
	kind      entities.ItemKind

	mu      sync.Mutex
	entries map[string]*cacheEntry

	hits     atomic.Int64
	analyses atomic.Int64
}

type cacheEntry struct {
	ready  chan struct{}
	binary *entities.Binary
}

// NewBinaryCache creates an empty shared library cache backed by evaluator
func NewBinaryCache(evaluator services.BinaryEvaluator) *BinaryCache {
	return &BinaryCache{
		evaluator: evaluator,
		kind:      entities.ItemDylib,
		entries:   make(map[string]*cacheEntry),
	}
}

// NewExecutableCache creates an empty cache for main executables
func NewExecutableCache(evaluator services.BinaryEvaluator) *BinaryCache {
	c := NewBinaryCache(evaluator)
	c.kind = entities.ItemExecutable
	return c
}

// Resolve returns the shared Binary for path, analyzing it on first use
func (c *BinaryCache) Resolve(ctx context.Context, path string) *entities.Binary {
	key := filepath.Clean(path)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		<-entry.ready
		return entry.binary
	}
	entry := &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	c.analyses.Add(1)
	binary := c.evaluator.Evaluate(ctx, key)
	if binary == nil {
		binary = entities.NewBinary(key)
	}
	binary.Kind = c.kind
	entry.binary = binary
	close(entry.ready)

	return binary
}

// Key returns the arena key used for path
func (c *BinaryCache) Key(path string) string {
	return filepath.Clean(path)
}

// Binaries returns every completed Binary keyed by path
func (c *BinaryCache) Binaries() map[string]*entities.Binary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]*entities.Binary, len(c.entries))
	for key, entry := range c.entries {
		select {
		case <-entry.ready:
			out[key] = entry.binary
		default:
			// still in flight; not part of a finished session
		}
	}
	return out
}

// Stats returns hit and analysis counters
func (c *BinaryCache) Stats() entities.CacheStats {
	return entities.CacheStats{
		Hits:     c.hits.Load(),
		Analyses: c.analyses.Load(),
	}
}
