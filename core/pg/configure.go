package pg

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/logger"

	"github.com/tileflux/martin/core/source"
)

// Configure resolves cfg into a set of registered sources: declared
// tables/functions are validated against the catalog; an empty
// declaration triggers autodiscovery instead (spec.md §4.5). Every
// resulting source's ID comes from resolver, so it can never collide
// with another configurator's output or a reserved name.
func Configure(ctx context.Context, cfg Config, pool *pgxpool.Pool, catalog Catalog, resolver *source.IDResolver) (map[string]source.Source, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrNoConnectionString
	}

	if cfg.declarative() {
		return configureDeclarative(ctx, cfg, pool, catalog, resolver)
	}
	return configureAutodiscovered(ctx, cfg, pool, catalog, resolver)
}

func configureDeclarative(ctx context.Context, cfg Config, pool *pgxpool.Pool, catalog Catalog, resolver *source.IDResolver) (map[string]source.Source, error) {
	out := map[string]source.Source{}

	for desired, entry := range cfg.Tables {
		if err := catalog.ValidateTable(ctx, entry); err != nil {
			return nil, err
		}
		if entry.Extent == 0 {
			entry.Extent = DefaultExtent
		}
		if entry.Buffer == 0 {
			entry.Buffer = DefaultBuffer
		}
		id := resolver.Resolve(desired)
		out[id] = NewTableSource(id, pool, entry)
	}
	for desired, entry := range cfg.Functions {
		arity, err := catalog.ValidateFunction(ctx, entry)
		if err != nil {
			return nil, err
		}
		entry.Arity = arity
		id := resolver.Resolve(desired)
		out[id] = NewFunctionSource(id, pool, entry)
	}
	return out, nil
}

// discoverResult pairs a discovery's output with any error, so both
// discoveries can run concurrently and be joined afterward.
type discoverResult struct {
	tables    []TableEntry
	functions []FunctionEntry
	err       error
}

func configureAutodiscovered(ctx context.Context, cfg Config, pool *pgxpool.Pool, catalog Catalog, resolver *source.IDResolver) (map[string]source.Source, error) {
	var wg sync.WaitGroup
	var tables []TableEntry
	var functions []FunctionEntry
	var tErr, fErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		tables, tErr = catalog.DiscoverTables(ctx, cfg.DefaultSRID)
	}()
	go func() {
		defer wg.Done()
		functions, fErr = catalog.DiscoverFunctions(ctx)
	}()
	wg.Wait()

	if tErr != nil {
		return nil, tErr
	}
	if fErr != nil {
		return nil, fErr
	}

	out := map[string]source.Source{}

	byTable := map[string][]TableEntry{}
	for _, t := range tables {
		byTable[t.Table] = append(byTable[t.Table], t)
	}
	for tableName, entries := range byTable {
		multi := len(entries) > 1
		for _, e := range entries {
			desired := tableName
			if multi {
				desired = fmt.Sprintf("%s.%s", tableName, e.GeometryColumn)
			}
			id := resolver.Resolve(desired)
			out[id] = NewTableSource(id, pool, e)
		}
	}

	for _, f := range functions {
		id := resolver.Resolve(f.Name)
		out[id] = NewFunctionSource(id, pool, f)
	}

	logger.Infof("pg: autodiscovered %d table source(s) and %d function source(s)", len(tables), len(functions))
	return out, nil
}

// BuildComposite assembles a CompositeSource out of already-registered
// table sources named by componentIDs, preserving their order. It is
// called from the HTTP layer each time a comma-separated source list
// (spec.md §6) is requested, not during Configure, since
// composites are a view over already-built table sources rather than
// catalog entries of their own.
func BuildComposite(id string, pool *pgxpool.Pool, registry map[string]source.Source, componentIDs []string) (*CompositeSource, error) {
	components := make([]*TableSource, 0, len(componentIDs))
	for _, cid := range componentIDs {
		s, ok := registry[cid]
		if !ok {
			return nil, fmt.Errorf("pg: composite component %q not found", cid)
		}
		ts, ok := s.(*TableSource)
		if !ok {
			return nil, fmt.Errorf("pg: composite component %q is not a table source", cid)
		}
		components = append(components, ts)
	}
	return NewCompositeSource(id, pool, components), nil
}
