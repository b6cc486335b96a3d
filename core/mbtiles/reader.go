// Package mbtiles implements the TDB (tile-archive) reader and copier:
// opening a single-file SQLite tile archive, classifying its physical
// shape, extracting a TileJSON document from its metadata table, and
// serving tile reads over a bounded read-only connection pool.
package mbtiles

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultPoolSize bounds the number of concurrent readers against one
// archive file.
const DefaultPoolSize = 4

// Mbtiles is an open TDB archive, backed by a bounded read-only
// connection pool (one *sql.DB per archive, as spec.md §5 requires).
type Mbtiles struct {
	filepath string
	filename string
	shape    Shape
	db       *sql.DB
}

// Open opens filepath read-only, classifies its physical shape, and
// returns a ready-to-use Mbtiles. It does not parse metadata or sample
// tiles; call GetMetadata for that.
func Open(filepath_ string) (*Mbtiles, error) {
	if !utf8.ValidString(filepath_) {
		return nil, ErrUnsupportedCharsInFilepath
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=true", filepath_)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("mbtiles: open %s: %w", filepath_, err)
	}
	db.SetMaxOpenConns(DefaultPoolSize)

	shape, err := detectShape(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	stem := filepath.Base(filepath_)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))

	return &Mbtiles{
		filepath: filepath_,
		filename: stem,
		shape:    shape,
		db:       db,
	}, nil
}

// Filepath returns the path the archive was opened from.
func (m *Mbtiles) Filepath() string { return m.filepath }

// Filename returns the file stem, used as the default source ID.
func (m *Mbtiles) Filename() string { return m.filename }

// Shape returns the archive's detected physical layout.
func (m *Mbtiles) Shape() Shape { return m.shape }

// Close releases the underlying connection pool.
func (m *Mbtiles) Close() error { return m.db.Close() }

func (m *Mbtiles) tileQuery() string {
	if m.shape == Deduplicated {
		return `SELECT images.tile_data FROM map
			JOIN images ON images.tile_id = map.tile_id
			WHERE map.zoom_level = ? AND map.tile_column = ? AND map.tile_row = ?`
	}
	return `SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`
}

// tmsY converts an XYZ row to the TMS row TDB files store on disk.
// Applying it twice is the identity (spec.md §8 property 2).
func tmsY(z uint8, y uint32) uint32 {
	return uint32(1<<z) - 1 - y
}

// GetTile reads the tile at XYZ coordinate (z,x,y), returning nil if no
// row matches. A present-but-empty blob is returned as a non-nil,
// zero-length slice.
func (m *Mbtiles) GetTile(ctx context.Context, z uint8, x, y uint32) ([]byte, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := conn.QueryRowContext(ctx, m.tileQuery(), z, x, tmsY(z, y))
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// sampleAny picks one tile at any zoom_level >= 0, returning its zoom
// and data. found is false if the archive has no tiles at all.
func (m *Mbtiles) sampleAny(ctx context.Context, conn *sql.Conn) (zoom uint8, data []byte, found bool, err error) {
	var row *sql.Row
	if m.shape == Deduplicated {
		row = conn.QueryRowContext(ctx, `SELECT map.zoom_level, images.tile_data FROM map
			JOIN images ON images.tile_id = map.tile_id
			WHERE map.zoom_level >= 0 LIMIT 1`)
	} else {
		row = conn.QueryRowContext(ctx, `SELECT zoom_level, tile_data FROM tiles WHERE zoom_level >= 0 LIMIT 1`)
	}

	if err := row.Scan(&zoom, &data); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	return zoom, data, true, nil
}

// sampleAtZoom reads one tile_data blob at the given zoom. found is
// false if no row matches.
func (m *Mbtiles) sampleAtZoom(ctx context.Context, conn *sql.Conn, z uint8) (data []byte, found bool, err error) {
	var row *sql.Row
	if m.shape == Deduplicated {
		row = conn.QueryRowContext(ctx, `SELECT images.tile_data FROM map
			JOIN images ON images.tile_id = map.tile_id
			WHERE map.zoom_level = ? LIMIT 1`, z)
	} else {
		row = conn.QueryRowContext(ctx, `SELECT tile_data FROM tiles WHERE zoom_level = ? LIMIT 1`, z)
	}

	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
