// Package source defines the common contract every tile backend
// (TDB archive, spatial-DB table, composite, function) implements, and
// the process-wide ID resolver used to assign each a unique name.
package source

import (
	"context"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/tileinfo"
)

// XYZ is a tile coordinate in XYZ (web-map) convention.
type XYZ struct {
	Z uint8
	X uint32
	Y uint32
}

// Query is the opaque string-to-string bag captured from a request's
// URL query string. Only function sources consult it; table and
// composite sources ignore it.
type Query map[string]string

// Source is the closed set of backend kinds the server dispatches
// requests through: TDB archive, spatial-DB table, composite, and
// spatial-DB function all satisfy this interface identically.
type Source interface {
	// ID returns this source's resolved registry ID.
	ID() string
	// TileJSON returns the source's TileJSON document.
	TileJSON() mbtiles.TileJSON
	// TileInfo returns the format/encoding this source serves.
	TileInfo() tileinfo.Info
	// CloneHandle returns a handle sharing the same underlying pool
	// or file handle, safe to hand to a second registry entry (used
	// by composite sources, which hold references to their
	// components rather than owning a separate connection).
	CloneHandle() Source
	// GetTile returns the tile payload at xyz, or a zero-length
	// non-nil slice if there is no tile at that coordinate — a
	// well-formed "no tile" response the HTTP layer maps to 204.
	GetTile(ctx context.Context, xyz XYZ, query Query) ([]byte, error)
}
