package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
)

// FunctionSource wraps a user-defined (z,x,y[,query]) -> bytea
// PostGIS function. Unlike table sources it does consult the request
// query bag, passed through as a single jsonb argument.
type FunctionSource struct {
	id    string
	pool  *pgxpool.Pool
	entry FunctionEntry
}

// NewFunctionSource builds a FunctionSource over an already-pooled
// connection.
func NewFunctionSource(id string, pool *pgxpool.Pool, entry FunctionEntry) *FunctionSource {
	return &FunctionSource{id: id, pool: pool, entry: entry}
}

func (s *FunctionSource) ID() string { return s.id }

func (s *FunctionSource) TileJSON() mbtiles.TileJSON {
	return mbtiles.TileJSON{
		Tiles: []string{fmt.Sprintf("/%s/{z}/{x}/{y}.mvt", s.id)},
		Other: map[string]any{},
	}
}

func (s *FunctionSource) TileInfo() tileinfo.Info {
	return tileinfo.Info{Format: tileinfo.MVT, Encoding: tileinfo.Identity}
}

func (s *FunctionSource) CloneHandle() source.Source {
	return &FunctionSource{id: s.id, pool: s.pool, entry: s.entry}
}

// GetTile calls the function with (z, x, y) and, when the function
// was declared or discovered with a 4th parameter, the query bag; a
// 3-arg function never receives it, since PostgreSQL has no overload
// resolution to fall back on here.
func (s *FunctionSource) GetTile(ctx context.Context, xyz source.XYZ, query source.Query) ([]byte, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: acquire connection for %s: %w", s.id, err)
	}
	defer conn.Release()

	sql, args := s.entry.callExpr(xyz, query)

	var data []byte
	if err := conn.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		return nil, fmt.Errorf("pg: call function %s: %w", s.id, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// callExpr builds the SELECT calling this function, omitting the
// query-bag argument for a 3-arg function rather than padding the
// call with an argument that doesn't exist in the function's
// signature. Split out of GetTile so arity handling can be tested
// without a live connection.
func (e FunctionEntry) callExpr(xyz source.XYZ, query source.Query) (string, []any) {
	if e.Arity >= 4 {
		sql := fmt.Sprintf("SELECT %s.%s($1, $2, $3, $4)", quoteIdent(e.Schema), quoteIdent(e.Name))
		return sql, []any{xyz.Z, xyz.X, xyz.Y, map[string]string(query)}
	}
	sql := fmt.Sprintf("SELECT %s.%s($1, $2, $3)", quoteIdent(e.Schema), quoteIdent(e.Name))
	return sql, []any{xyz.Z, xyz.X, xyz.Y}
}
