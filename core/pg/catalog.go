package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog is the subset of spatial-catalog introspection Configure
// needs. It is an interface so the reconciliation logic in
// configure.go can be tested without a live PostGIS instance.
type Catalog interface {
	// DiscoverTables enumerates every (schema, table, geometry_column)
	// triple in the catalog, per spec.md §4.5. A recorded SRID of 0 is
	// replaced by defaultSRID; when defaultSRID is also 0 the triple is
	// dropped.
	DiscoverTables(ctx context.Context, defaultSRID int) ([]TableEntry, error)
	// DiscoverFunctions enumerates every (z,x,y[,query]) -> bytes
	// function in a non-system schema.
	DiscoverFunctions(ctx context.Context) ([]FunctionEntry, error)
	// ValidateTable checks a declared entry against the catalog,
	// returning an error identifying the offending entry if its
	// (schema, table, geometry column) does not exist. The declared
	// SRID is not compared against the catalog.
	ValidateTable(ctx context.Context, e TableEntry) error
	// ValidateFunction checks a declared entry against the catalog and
	// returns its actual parameter count (3 or 4).
	ValidateFunction(ctx context.Context, e FunctionEntry) (int, error)
}

// pgxCatalog is the real Catalog implementation, backed by a
// pgxpool.Pool running the introspection queries spec.md §4.5
// describes against PostGIS's own catalog views.
type pgxCatalog struct {
	pool *pgxpool.Pool
}

// NewCatalog wraps a pool as a Catalog.
func NewCatalog(pool *pgxpool.Pool) Catalog {
	return &pgxCatalog{pool: pool}
}

const discoverTablesQuery = `
SELECT f_table_schema, f_table_name, f_geometry_column, type, srid
FROM geometry_columns
WHERE f_table_schema NOT IN ('pg_catalog', 'information_schema', 'tiger', 'topology')`

func (c *pgxCatalog) DiscoverTables(ctx context.Context, defaultSRID int) ([]TableEntry, error) {
	rows, err := c.pool.Query(ctx, discoverTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("pg: discover tables: %w", err)
	}
	defer rows.Close()

	var out []TableEntry
	for rows.Next() {
		var schema, table, geomCol, geomType string
		var srid int
		if err := rows.Scan(&schema, &table, &geomCol, &geomType, &srid); err != nil {
			return nil, err
		}
		if srid == 0 {
			if defaultSRID == 0 {
				continue // dropped: no SRID and no configured fallback
			}
			srid = defaultSRID
		}

		props, err := c.columnProperties(ctx, schema, table, geomCol)
		if err != nil {
			return nil, err
		}

		out = append(out, TableEntry{
			Schema:         schema,
			Table:          table,
			GeometryColumn: geomCol,
			GeometryType:   geomType,
			SRID:           srid,
			Extent:         DefaultExtent,
			Buffer:         DefaultBuffer,
			ClipGeom:       true,
			Properties:     props,
		})
	}
	return out, rows.Err()
}

const columnPropertiesQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2 AND column_name != $3`

func (c *pgxCatalog) columnProperties(ctx context.Context, schema, table, geomCol string) (map[string]string, error) {
	rows, err := c.pool.Query(ctx, columnPropertiesQuery, schema, table, geomCol)
	if err != nil {
		return nil, fmt.Errorf("pg: read columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	props := map[string]string{}
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		props[name] = dataType
	}
	return props, rows.Err()
}

const discoverFunctionsQuery = `
SELECT n.nspname, p.proname, p.pronargs
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
JOIN pg_type rt ON rt.oid = p.prorettype
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND rt.typname = 'bytea'
  AND p.pronargs IN (3, 4)`

func (c *pgxCatalog) DiscoverFunctions(ctx context.Context) ([]FunctionEntry, error) {
	rows, err := c.pool.Query(ctx, discoverFunctionsQuery)
	if err != nil {
		return nil, fmt.Errorf("pg: discover functions: %w", err)
	}
	defer rows.Close()

	var out []FunctionEntry
	for rows.Next() {
		var schema, name string
		var arity int
		if err := rows.Scan(&schema, &name, &arity); err != nil {
			return nil, err
		}
		out = append(out, FunctionEntry{Schema: schema, Name: name, Arity: arity})
	}
	return out, rows.Err()
}

func (c *pgxCatalog) ValidateTable(ctx context.Context, e TableEntry) error {
	var exists bool
	err := c.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM geometry_columns
		WHERE f_table_schema = $1 AND f_table_name = $2 AND f_geometry_column = $3)`,
		e.Schema, e.Table, e.GeometryColumn).Scan(&exists)
	if err != nil {
		return fmt.Errorf("pg: validate table %s.%s: %w", e.Schema, e.Table, err)
	}
	if !exists {
		return fmt.Errorf("pg: declared table %s.%s(%s) not found in spatial catalog", e.Schema, e.Table, e.GeometryColumn)
	}
	return nil
}

func (c *pgxCatalog) ValidateFunction(ctx context.Context, e FunctionEntry) (int, error) {
	var arity int
	err := c.pool.QueryRow(ctx, `SELECT p.pronargs FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1 AND p.proname = $2`, e.Schema, e.Name).Scan(&arity)
	if err != nil {
		return 0, fmt.Errorf("pg: declared function %s.%s not found: %w", e.Schema, e.Name, err)
	}
	if arity != 3 && arity != 4 {
		return 0, fmt.Errorf("pg: declared function %s.%s has unsupported arity %d, want 3 or 4", e.Schema, e.Name, arity)
	}
	return arity, nil
}
