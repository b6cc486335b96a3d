package pg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
)

// TableSource serves a single PostGIS table as one MVT layer per
// request, per the query template in spec.md §4.6.
type TableSource struct {
	id    string
	pool  *pgxpool.Pool
	entry TableEntry
}

// NewTableSource builds a TableSource over an already-pooled
// connection. id is the resolver-assigned registry ID; the MVT layer
// name written into ST_AsMVT is the bare table name, independent of
// any ".1" suffix the resolver added.
func NewTableSource(id string, pool *pgxpool.Pool, entry TableEntry) *TableSource {
	return &TableSource{id: id, pool: pool, entry: entry}
}

func (s *TableSource) ID() string { return s.id }

func (s *TableSource) TileJSON() mbtiles.TileJSON {
	layer := mbtiles.VectorLayer{
		ID:     s.entry.Table,
		Fields: s.entry.Properties,
	}
	if s.entry.MinZoom != nil {
		layer.MinZoom = s.entry.MinZoom
	}
	if s.entry.MaxZoom != nil {
		layer.MaxZoom = s.entry.MaxZoom
	}
	return mbtiles.TileJSON{
		Tiles:        []string{fmt.Sprintf("/%s/{z}/{x}/{y}.mvt", s.id)},
		VectorLayers: []mbtiles.VectorLayer{layer},
		MinZoom:      s.entry.MinZoom,
		MaxZoom:      s.entry.MaxZoom,
		Other:        map[string]any{},
	}
}

func (s *TableSource) TileInfo() tileinfo.Info {
	return tileinfo.Info{Format: tileinfo.MVT, Encoding: tileinfo.Identity}
}

func (s *TableSource) CloneHandle() source.Source {
	return &TableSource{id: s.id, pool: s.pool, entry: s.entry}
}

// inZoomRange reports whether z falls inside the source's configured
// envelope; a nil bound on either side means unbounded on that side.
func (s *TableSource) inZoomRange(z uint8) bool {
	if s.entry.MinZoom != nil && z < *s.entry.MinZoom {
		return false
	}
	if s.entry.MaxZoom != nil && z > *s.entry.MaxZoom {
		return false
	}
	return true
}

// mvtExpr returns the `ST_AsMVT(...)` SELECT expression for this
// table, without the outer SELECT/FROM; used standalone by GetTile
// and embedded, with its placeholders renumbered, by CompositeSource.
func (e TableEntry) mvtExpr(layerAlias string) (string, []any) {
	margin := float64(e.Buffer) / float64(e.Extent)

	cols := make([]string, 0, len(e.Properties))
	for col := range e.Properties {
		cols = append(cols, col)
	}
	sort.Strings(cols) // deterministic column order across requests
	propsSQL := ""
	for _, c := range cols {
		propsSQL += fmt.Sprintf(", %q", c)
	}

	sql := fmt.Sprintf(`SELECT ST_AsMVT(tile, %s, $4, 'geom') FROM (
		SELECT ST_AsMVTGeom(ST_Transform(%s, 3857), ST_TileEnvelope($1, $2, $3), $4, $5, $6) AS geom%s
		FROM %s.%s
		WHERE %s && ST_Transform(ST_TileEnvelope($1, $2, $3, $7::float8), $8)
	) AS tile`,
		pgQuoteLiteral(layerAlias), quoteIdent(e.GeometryColumn), propsSQL,
		quoteIdent(e.Schema), quoteIdent(e.Table), quoteIdent(e.GeometryColumn))

	args := []any{nil, nil, nil, e.Extent, e.Buffer, e.ClipGeom, margin, e.SRID}
	return sql, args
}

func quoteIdent(s string) string      { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
func pgQuoteLiteral(s string) string  { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// GetTile implements source.Source. query is ignored: table sources
// never consult request parameters (spec.md §4.6).
func (s *TableSource) GetTile(ctx context.Context, xyz source.XYZ, _ source.Query) ([]byte, error) {
	if !s.inZoomRange(xyz.Z) {
		return []byte{}, nil
	}

	sql, args := s.entry.mvtExpr(s.entry.Table)
	args[0], args[1], args[2] = xyz.Z, xyz.X, xyz.Y

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: acquire connection for %s: %w", s.id, err)
	}
	defer conn.Release()

	var data []byte
	if err := conn.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		return nil, fmt.Errorf("pg: query tile for %s: %w", s.id, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
