package model

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
)

var (
	ErrNoEntity  = errors.New("entity does not exist")
	ErrBadInput  = errors.New("invalid input")
	ErrEmptyTile = errors.New("tile has no content")
)

const tileJSONVersion = "2.2.0"

// GetTileJSON resolves id (single or comma-separated composite)
// against reg and returns the document with an absolute tiles URL.
// base is the externally-visible scheme+host to rewrite relative tile
// templates against, honoring a reverse proxy's x-rewrite-url header
// ahead of the request's own Host (spec.md §6).
func GetTileJSON(reg *Registry, id string, base *url.URL, rawQuery string) (*mbtiles.TileJSON, error) {
	s, err := reg.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEntity, err)
	}

	tj := s.TileJSON()
	tj.TileJSON = tileJSONVersion
	tj.Tiles = rewriteTileTemplates(tj.Tiles, base, rawQuery)

	return &tj, nil
}

// rewriteTileTemplates turns a source's relative `/{id}/{z}/{x}/{y}.fmt`
// templates into absolute URLs under base, preserving the original
// request's query string on each (spec.md §6: "preserve the original
// request's query string on the emitted tile URL template").
func rewriteTileTemplates(tiles []string, base *url.URL, rawQuery string) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		u := fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, t)
		if rawQuery != "" {
			u += "?" + rawQuery
		}
		out[i] = u
	}
	return out
}

// Tile is a fetched tile payload ready to be written to the response.
type Tile struct {
	Data []byte
	Info tileinfo.Info
	Hash [32]byte
}

// GetTile resolves id and fetches the tile at z/x/y. The payload is
// not sniffed: its format/encoding is the source's own TileInfo
// (PostGIS sources always report identity MVT; TDB sources carry the
// tileinfo.Info detected from their metadata).
func GetTile(ctx context.Context, reg *Registry, id, zRaw, xRaw, yRaw string, query source.Query) (*Tile, error) {
	s, err := reg.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEntity, err)
	}

	xyz, err := parseXYZ(zRaw, xRaw, yRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	data, err := s.GetTile(ctx, xyz, query)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyTile
	}

	h := blake3.New()
	h.Write(data)
	sum := h.Sum(nil)

	return &Tile{
		Data: data,
		Info: s.TileInfo(),
		Hash: [32]byte(sum),
	}, nil
}

// parseXYZ parses path segments into a source.XYZ, stripping a
// trailing `.<format>` extension from y if present (the route captures
// y and its extension as a single segment).
func parseXYZ(zRaw, xRaw, yRaw string) (source.XYZ, error) {
	y := yRaw
	if dot := strings.LastIndexByte(y, '.'); dot >= 0 {
		y = y[:dot]
	}

	z, err := strconv.ParseUint(zRaw, 10, 8)
	if err != nil {
		return source.XYZ{}, fmt.Errorf("invalid z %q: %w", zRaw, err)
	}
	x, err := strconv.ParseUint(xRaw, 10, 32)
	if err != nil {
		return source.XYZ{}, fmt.Errorf("invalid x %q: %w", xRaw, err)
	}
	yy, err := strconv.ParseUint(y, 10, 32)
	if err != nil {
		return source.XYZ{}, fmt.Errorf("invalid y %q: %w", yRaw, err)
	}

	return source.XYZ{Z: uint8(z), X: uint32(x), Y: uint32(yy)}, nil
}
