package pg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
)

// CompositeSource is an ordered list of table sources served as one
// MVT payload per request: a design invariant is that a composite
// request costs exactly one database round-trip (spec.md §4.6).
type CompositeSource struct {
	id         string
	pool       *pgxpool.Pool
	components []*TableSource
}

// NewCompositeSource builds a composite over already-constructed
// table sources. Component order is preserved in TileJSON's
// vector_layers, per spec.md.
func NewCompositeSource(id string, pool *pgxpool.Pool, components []*TableSource) *CompositeSource {
	return &CompositeSource{id: id, pool: pool, components: components}
}

func (s *CompositeSource) ID() string { return s.id }

// TileJSON exposes the union envelope of all components' zoom ranges,
// per the resolved Open Question in spec.md §9.
func (s *CompositeSource) TileJSON() mbtiles.TileJSON {
	var layers []mbtiles.VectorLayer
	var minZ, maxZ *uint8

	for _, c := range s.components {
		tj := c.TileJSON()
		layers = append(layers, tj.VectorLayers...)
		minZ = widenMin(minZ, tj.MinZoom)
		maxZ = widenMax(maxZ, tj.MaxZoom)
	}

	return mbtiles.TileJSON{
		Tiles:        []string{fmt.Sprintf("/%s/{z}/{x}/{y}.mvt", s.id)},
		VectorLayers: layers,
		MinZoom:      minZ,
		MaxZoom:      maxZ,
		Other:        map[string]any{},
	}
}

func widenMin(acc, next *uint8) *uint8 {
	if next == nil {
		return acc
	}
	if acc == nil || *next < *acc {
		return next
	}
	return acc
}

func widenMax(acc, next *uint8) *uint8 {
	if next == nil {
		return acc
	}
	if acc == nil || *next > *acc {
		return next
	}
	return acc
}

func (s *CompositeSource) TileInfo() tileinfo.Info {
	return tileinfo.Info{Format: tileinfo.MVT, Encoding: tileinfo.Identity}
}

func (s *CompositeSource) CloneHandle() source.Source {
	return &CompositeSource{id: s.id, pool: s.pool, components: s.components}
}

// componentsInRange filters to the components whose own [minzoom,
// maxzoom] contains z. Zoom filtering happens per-component even
// though TileJSON advertises the union, per spec.md's resolved Open
// Question.
func (s *CompositeSource) componentsInRange(z uint8) []*TableSource {
	var in []*TableSource
	for _, c := range s.components {
		if c.inZoomRange(z) {
			in = append(in, c)
		}
	}
	return in
}

// GetTile issues one round-trip that concatenates each in-range
// component's MVT layer expression with `||`. Using one round-trip is
// the entire reason composite sources exist (spec.md §4.6).
func (s *CompositeSource) GetTile(ctx context.Context, xyz source.XYZ, _ source.Query) ([]byte, error) {
	components := s.componentsInRange(xyz.Z)
	if len(components) == 0 {
		return []byte{}, nil
	}

	finalSQL, args := buildCompositeQuery(components, xyz)

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: acquire connection for %s: %w", s.id, err)
	}
	defer conn.Release()

	var data []byte
	if err := conn.QueryRow(ctx, finalSQL, args...).Scan(&data); err != nil {
		return nil, fmt.Errorf("pg: query composite tile for %s: %w", s.id, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// buildCompositeQuery concatenates each component's MVT expression
// into one SELECT, renumbering each component's placeholders into a
// single, non-overlapping sequence and filling in the shared z/x/y
// values. Split out of GetTile so the SQL/argument assembly can be
// tested without a live connection.
func buildCompositeQuery(components []*TableSource, xyz source.XYZ) (string, []any) {
	var exprs []string
	var args []any
	placeholder := 0
	for _, c := range components {
		sql, compArgs := c.entry.mvtExpr(c.entry.Table)
		sql, compArgs = renumberPlaceholders(sql, compArgs, &placeholder)
		exprs = append(exprs, "COALESCE(("+sql+"), '\\x'::bytea)")
		args = append(args, compArgs...)
	}

	finalSQL := "SELECT " + strings.Join(exprs, " || ")
	return finalSQL, composeZXYArgs(xyz, components, args)
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// renumberPlaceholders rewrites a standalone `$1..$8` query fragment
// to use a running placeholder counter so multiple per-component
// fragments can be concatenated into one statement without colliding
// bind positions. Every `$n` referencing one of this fragment's own
// args is mapped, in a single pass, to a fresh number from *counter;
// repeated in-place ReplaceAll calls are unsafe here because a
// freshly written token (e.g. "$10") can itself contain an
// not-yet-processed old token ("$1") as a substring.
func renumberPlaceholders(sql string, args []any, counter *int) (string, []any) {
	mapping := make(map[int]int, len(args))
	for i := 1; i <= len(args); i++ {
		*counter++
		mapping[i] = *counter
	}

	out := placeholderPattern.ReplaceAllStringFunc(sql, func(tok string) string {
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			return tok
		}
		newN, ok := mapping[n]
		if !ok {
			return tok
		}
		return "$" + strconv.Itoa(newN)
	})
	return out, args
}

// composeZXYArgs substitutes the shared z/x/y values into each
// component's renumbered argument slice (positions 0..2 of each
// original 8-arg block).
func composeZXYArgs(xyz source.XYZ, components []*TableSource, args []any) []any {
	const argsPerComponent = 8
	for i := range components {
		base := i * argsPerComponent
		if base+2 < len(args) {
			args[base] = xyz.Z
			args[base+1] = xyz.X
			args[base+2] = xyz.Y
		}
	}
	return args
}
