package model

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tileflux/martin/core/pg"
	"github.com/tileflux/martin/core/source"
)

var (
	ErrSourceNotFound = fmt.Errorf("source not found")
)

// Registry is the immutable-after-startup source set the HTTP layer
// dispatches against (spec.md §5: "Source registry: immutable after
// the configurator returns"). It additionally knows how to assemble
// an ephemeral composite source on demand for a comma-separated ID
// segment, since composites are a view over already-registered table
// sources rather than a catalog entry of their own (see core/pg's
// BuildComposite).
type Registry struct {
	mu      sync.RWMutex
	sources map[string]source.Source
	pgPool  *pgxpool.Pool
}

// NewRegistry returns an empty registry. pool may be nil if no
// spatial-DB sources were configured (a TDB-only deployment).
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{sources: map[string]source.Source{}, pgPool: pool}
}

// Register adds s under its own resolved ID. Intended to be called
// only during startup, before the HTTP layer begins serving.
func (r *Registry) Register(s source.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID()] = s
}

// All returns a snapshot of the registered sources, for /catalog.
func (r *Registry) All() map[string]source.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]source.Source, len(r.sources))
	for k, v := range r.sources {
		out[k] = v
	}
	return out
}

// Resolve looks up id, which may be a single source ID or a
// comma-separated list naming a composite. Composites are built fresh
// on each call (cheap: it only wraps already-open pool handles).
func (r *Registry) Resolve(id string) (source.Source, error) {
	if !strings.Contains(id, ",") {
		r.mu.RLock()
		s, ok := r.sources[id]
		r.mu.RUnlock()
		if !ok {
			return nil, ErrSourceNotFound
		}
		return s, nil
	}

	ids := strings.Split(id, ",")
	r.mu.RLock()
	snapshot := r.sources
	r.mu.RUnlock()

	composite, err := pg.BuildComposite(id, r.pgPool, snapshot, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	return composite, nil
}
