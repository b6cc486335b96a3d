// Package pg configures and serves tile sources backed by a spatial
// database (PostGIS): table sources, function sources, and composite
// sources made of several table sources sharing one database
// round-trip per request.
package pg

import (
	"fmt"
)

// DefaultExtent and DefaultBuffer are the ST_AsMVTGeom parameters used
// when a table entry does not declare its own.
const (
	DefaultExtent = 4096
	DefaultBuffer = 64
)

// TableEntry is one declarative `tables` config entry, or the result
// of autodiscovering one. Geometry/SRID/Extent/Buffer/Clip mirror the
// ST_AsMVTGeom parameters spec.md §4.6 names explicitly.
type TableEntry struct {
	Schema          string
	Table           string
	GeometryColumn  string
	GeometryType    string
	SRID            int
	Extent          int
	Buffer          int
	ClipGeom        bool
	Properties      map[string]string // column name -> SQL type
	MinZoom         *uint8
	MaxZoom         *uint8
}

// FunctionEntry is one declarative `functions` config entry, or the
// result of autodiscovering one: a user-defined function taking
// (z, x, y) and optionally a query bag, returning MVT bytes. Arity is
// the function's actual parameter count (3 or 4), recorded during
// discovery/validation so GetTile knows whether to pass the query bag.
type FunctionEntry struct {
	Schema string
	Name   string
	Arity  int
}

// Config is the validated, fully-merged spatial-DB configuration a
// single connection pool is built from.
type Config struct {
	ConnectionString string
	TLSCertPath      string
	PoolSize         int
	DefaultSRID      int

	// Tables and Functions are the declarative entries, if any were
	// configured. When both are empty, Configure runs autodiscovery
	// instead of validating a declared list.
	Tables    map[string]TableEntry
	Functions map[string]FunctionEntry
}

// ErrNoConnectionString is returned by Configure when cfg has no
// connection string — this spatial-DB source cannot be built at all.
var ErrNoConnectionString = fmt.Errorf("pg: connection string is required")

// declarative reports whether the config names any table or function
// explicitly, in which case autodiscovery is skipped in favor of
// validating exactly the declared entries (spec.md §4.5).
func (c Config) declarative() bool {
	return len(c.Tables) > 0 || len(c.Functions) > 0
}
