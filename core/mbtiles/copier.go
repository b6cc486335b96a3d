package mbtiles

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/logger"
)

// CopyOptions controls which rows the copier carries over.
type CopyOptions struct {
	// Zooms, if non-empty, takes precedence over MinZoom/MaxZoom and
	// selects exactly these zoom levels.
	Zooms map[uint8]bool
	// MinZoom and MaxZoom bound a BETWEEN/>=/<= predicate when Zooms is
	// empty. Either may be nil.
	MinZoom *uint8
	MaxZoom *uint8
	Verbose bool
}

// zoomPredicate returns the SQL fragment (with leading space) and bind
// params implementing the precedence in spec.md §4.3.
func (o CopyOptions) zoomPredicate(column string) (string, []any) {
	if len(o.Zooms) > 0 {
		zooms := make([]uint8, 0, len(o.Zooms))
		for z := range o.Zooms {
			zooms = append(zooms, z)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(zooms)), ",")
		args := make([]any, len(zooms))
		for i, z := range zooms {
			args[i] = z
		}
		return fmt.Sprintf(" WHERE %s IN (%s)", column, placeholders), args
	}
	if o.MinZoom != nil && o.MaxZoom != nil {
		return fmt.Sprintf(" WHERE %s BETWEEN ? AND ?", column), []any{*o.MinZoom, *o.MaxZoom}
	}
	if o.MinZoom != nil {
		return fmt.Sprintf(" WHERE %s >= ?", column), []any{*o.MinZoom}
	}
	if o.MaxZoom != nil {
		return fmt.Sprintf(" WHERE %s <= ?", column), []any{*o.MaxZoom}
	}
	return "", nil
}

// Copy copies srcPath into dstPath, which must not exist or must be an
// empty archive. The destination preserves the source's physical shape.
func Copy(ctx context.Context, srcPath, dstPath string, opts CopyOptions) error {
	src, err := Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	shape := src.shape

	dst, err := sql.Open("sqlite3", dstPath)
	if err != nil {
		return fmt.Errorf("mbtiles: open destination %s: %w", dstPath, err)
	}
	defer dst.Close()

	var exists int
	err = dst.QueryRowContext(ctx, `SELECT 1 FROM sqlite_master LIMIT 1`).Scan(&exists)
	if err == nil {
		return ErrNonEmptyTargetFile
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("mbtiles: checking destination schema: %w", err)
	}

	if opts.Verbose {
		logger.Infof("mbtiles: copying %s (%s) -> %s", srcPath, shape, dstPath)
	}

	if _, err := dst.ExecContext(ctx, `PRAGMA page_size = 512`); err != nil {
		return err
	}
	if _, err := dst.ExecContext(ctx, `VACUUM`); err != nil {
		return err
	}

	if _, err := dst.ExecContext(ctx, `ATTACH DATABASE ? AS sourceDb`, srcPath); err != nil {
		return fmt.Errorf("mbtiles: attach source: %w", err)
	}
	defer dst.ExecContext(ctx, `DETACH DATABASE sourceDb`)

	ddlRows, err := dst.QueryContext(ctx, `SELECT sql FROM sourceDb.sqlite_master
		WHERE tbl_name IN ('metadata', 'tiles', 'map', 'images') AND sql IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("mbtiles: read source schema: %w", err)
	}
	var ddls []string
	for ddlRows.Next() {
		var ddl string
		if err := ddlRows.Scan(&ddl); err != nil {
			ddlRows.Close()
			return err
		}
		ddls = append(ddls, ddl)
	}
	if err := ddlRows.Err(); err != nil {
		ddlRows.Close()
		return err
	}
	ddlRows.Close()

	for _, ddl := range ddls {
		if _, err := dst.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("mbtiles: apply schema %q: %w", ddl, err)
		}
	}

	if _, err := dst.ExecContext(ctx, `INSERT INTO metadata SELECT * FROM sourceDb.metadata`); err != nil {
		return fmt.Errorf("mbtiles: copy metadata: %w", err)
	}

	switch shape {
	case DirectTiles:
		if err := copyFiltered(ctx, dst, "INSERT INTO tiles SELECT * FROM sourceDb.tiles", "zoom_level", opts); err != nil {
			return err
		}
	case Deduplicated:
		if err := copyFiltered(ctx, dst, "INSERT INTO map SELECT * FROM sourceDb.map", "zoom_level", opts); err != nil {
			return err
		}
		if _, err := dst.ExecContext(ctx, `INSERT INTO images (tile_id, tile_data)
			SELECT tile_id, tile_data
			FROM sourceDb.images
			WHERE tile_id IN (SELECT tile_id FROM map)`); err != nil {
			return fmt.Errorf("mbtiles: copy images: %w", err)
		}
	}

	return nil
}

func copyFiltered(ctx context.Context, dst *sql.DB, baseSQL, column string, opts CopyOptions) error {
	predicate, args := opts.zoomPredicate(column)
	if _, err := dst.ExecContext(ctx, baseSQL+predicate, args...); err != nil {
		return fmt.Errorf("mbtiles: %s: %w", baseSQL, err)
	}
	return nil
}
