package source

import (
	"fmt"
	"sync"
)

// reserved are identifiers the HTTP layer owns; a discovered source
// requesting one of these is treated as an immediate collision.
var reserved = map[string]bool{
	"health":  true,
	"index":   true,
	"catalog": true,
	"rpc":     true,
}

// IDResolver is the process-wide, thread-safe mapping from a desired
// source ID to the ID actually claimed for it. It is mutated only
// during configuration (spec.md §5: "used only during configuration;
// not touched on the tile-read path") and is safe for concurrent
// discoveries to call Resolve from multiple goroutines.
type IDResolver struct {
	mu      sync.Mutex
	claimed map[string]bool
}

// NewIDResolver returns an empty resolver.
func NewIDResolver() *IDResolver {
	return &IDResolver{claimed: map[string]bool{}}
}

// Resolve claims an ID for desired. If desired is unclaimed and not a
// reserved name, it is claimed and returned unchanged. Otherwise the
// smallest k >= 1 for which "desired.k" is unclaimed is claimed and
// returned. Concurrent calls never claim the same string.
func (r *IDResolver) Resolve(desired string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.claimed[desired] && !reserved[desired] {
		r.claimed[desired] = true
		return desired
	}

	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s.%d", desired, k)
		if !r.claimed[candidate] && !reserved[candidate] {
			r.claimed[candidate] = true
			return candidate
		}
	}
}

// Claimed reports whether id has already been claimed by a prior
// Resolve call. Intended for tests and diagnostics.
func (r *IDResolver) Claimed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed[id]
}
