package source_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tileflux/martin/core/source"
)

func TestResolveSuffixesOnCollision(t *testing.T) {
	r := source.NewIDResolver()

	assert.Equal(t, "a", r.Resolve("a"))
	assert.Equal(t, "a.1", r.Resolve("a"))
	assert.Equal(t, "a.2", r.Resolve("a"))
}

func TestResolveTreatsReservedNamesAsCollisions(t *testing.T) {
	r := source.NewIDResolver()

	assert.Equal(t, "health.1", r.Resolve("health"))
	assert.Equal(t, "catalog.1", r.Resolve("catalog"))
	assert.Equal(t, "index.1", r.Resolve("index"))
	assert.Equal(t, "rpc.1", r.Resolve("rpc"))
}

func TestResolveSkipsSuffixesAlreadyClaimedDirectly(t *testing.T) {
	r := source.NewIDResolver()

	assert.Equal(t, "a.1", r.Resolve("a.1")) // pre-claim the first suffix
	assert.Equal(t, "a", r.Resolve("a"))
	assert.Equal(t, "a.2", r.Resolve("a")) // a.1 already taken, skip to a.2
}

func TestResolveIsInjectiveUnderConcurrency(t *testing.T) {
	r := source.NewIDResolver()
	const n = 200

	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = r.Resolve("layer")
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range results {
		assert.False(t, seen[id], "duplicate ID resolved: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
