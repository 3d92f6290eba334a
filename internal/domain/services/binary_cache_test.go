package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

func TestBinaryCache_DeduplicatesConcurrentResolves(t *testing.T) {
	evaluator := newCountingEvaluator()
	evaluator.gate = make(chan struct{})
	cache := NewBinaryCache(evaluator)

	const callers = 200
	results := make(chan interface{}, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- cache.Resolve(context.Background(), "/usr/lib/libfoo.so")
		}()
	}

	// Let every caller reach the cache before analysis completes
	time.Sleep(20 * time.Millisecond)
	close(evaluator.gate)
	wg.Wait()
	close(results)

	var first interface{}
	for r := range results {
		if first == nil {
			first = r
		}
		if r != first {
			t.Fatal("callers received different Binary objects for the same path")
		}
	}

	if got := evaluator.count("/usr/lib/libfoo.so"); got != 1 {
		t.Errorf("analysis ran %d times, want 1", got)
	}
	stats := cache.Stats()
	if stats.Analyses != 1 || stats.Hits != callers-1 {
		t.Errorf("Stats() = %+v, want 1 analysis and %d hits", stats, callers-1)
	}
}

func TestBinaryCache_DifferentPathsIndependent(t *testing.T) {
	evaluator := newCountingEvaluator()
	cache := NewBinaryCache(evaluator)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Resolve(context.Background(), fmt.Sprintf("/lib/lib%d.so", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		if got := evaluator.count(fmt.Sprintf("/lib/lib%d.so", i)); got != 1 {
			t.Errorf("lib%d analyzed %d times, want 1", i, got)
		}
	}
	if got := len(cache.Binaries()); got != 10 {
		t.Errorf("Binaries() has %d entries, want 10", got)
	}
	if stats := cache.Stats(); stats.Hits != 0 {
		t.Errorf("Hits = %d, want 0", stats.Hits)
	}
}

func TestBinaryCache_CanonicalizesPaths(t *testing.T) {
	evaluator := newCountingEvaluator()
	cache := NewBinaryCache(evaluator)

	a := cache.Resolve(context.Background(), "/usr/lib/../lib/libc.so")
	b := cache.Resolve(context.Background(), "/usr/lib/libc.so")

	if a != b {
		t.Error("equivalent paths resolved to different binaries")
	}
	if cache.Key("/usr/lib/./libc.so") != "/usr/lib/libc.so" {
		t.Errorf("Key() = %q", cache.Key("/usr/lib/./libc.so"))
	}
	if _, ok := cache.Binaries()["/usr/lib/libc.so"]; !ok {
		t.Error("arena missing canonical key")
	}
}

func TestBinaryCache_TagsItemKind(t *testing.T) {
	evaluator := newCountingEvaluator()

	lib := NewBinaryCache(evaluator).Resolve(context.Background(), "/lib/libc.so.6")
	exe := NewExecutableCache(evaluator).Resolve(context.Background(), "/usr/bin/sshd")

	if lib.Kind != entities.ItemDylib {
		t.Errorf("library kind = %s, want dylib", lib.Kind)
	}
	if exe.Kind != entities.ItemExecutable {
		t.Errorf("executable kind = %s, want executable", exe.Kind)
	}
}
