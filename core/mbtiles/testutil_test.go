package mbtiles_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// directTilesFixture creates a DirectTiles-shaped archive at a temp
// path with one row per (zoom, tileData) pair, all at tile_column=0.
func directTilesFixture(t *testing.T, name string, rows map[uint8][]byte, meta map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE metadata (name TEXT, value TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`)
	require.NoError(t, err)

	for k, v := range meta {
		_, err = db.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)`, k, v)
		require.NoError(t, err)
	}
	for z, data := range rows {
		_, err = db.Exec(`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, 0, 0, ?)`, z, data)
		require.NoError(t, err)
	}

	return path
}

// deduplicatedFixture creates a Deduplicated-shaped archive.
func deduplicatedFixture(t *testing.T, name string, rows map[uint8][]byte, meta map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE metadata (name TEXT, value TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE map (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_id TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE images (tile_id TEXT, tile_data BLOB)`)
	require.NoError(t, err)

	for k, v := range meta {
		_, err = db.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)`, k, v)
		require.NoError(t, err)
	}
	i := 0
	for z, data := range rows {
		id := filepath.Join("id", string(rune('a'+i)))
		_, err = db.Exec(`INSERT INTO images (tile_id, tile_data) VALUES (?, ?)`, id, data)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, 0, 0, ?)`, z, id)
		require.NoError(t, err)
		i++
	}

	return path
}

// tileRow is an explicit (z,x,y,data) row for fixtures that need control
// over tile_column/tile_row rather than always using (0,0).
type tileRow struct {
	Z    uint8
	X    uint32
	Y    uint32
	Data []byte
}

// directTilesFixtureRaw is like directTilesFixture but takes explicit
// rows, letting callers control tile_column/tile_row directly.
func directTilesFixtureRaw(t *testing.T, name string, rows []tileRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE metadata (name TEXT, value TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec(`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`,
			r.Z, r.X, r.Y, r.Data)
		require.NoError(t, err)
	}

	return path
}

// dropTilesTable rewrites path's tiles table out of existence, leaving an
// archive that matches neither recognised physical shape.
func dropTilesTable(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(`DROP TABLE tiles`)
	return err
}
