package mbtiles

import (
	"errors"
	"fmt"

	"github.com/tileflux/martin/core/tileinfo"
)

var (
	// ErrUnsupportedCharsInFilepath is returned when the file path is
	// not valid UTF-8.
	ErrUnsupportedCharsInFilepath = errors.New("mbtiles: file path is not valid UTF-8")

	// ErrInvalidDataFormat is returned when a file exposes neither the
	// DirectTiles nor the Deduplicated table shape.
	ErrInvalidDataFormat = errors.New("mbtiles: unrecognised tile table shape")

	// ErrNoTilesFound is returned when content-type detection finds no
	// tile in any allowed zoom level.
	ErrNoTilesFound = errors.New("mbtiles: no tiles found")

	// ErrNonEmptyTargetFile is returned by the copier when the
	// destination archive already has a schema.
	ErrNonEmptyTargetFile = errors.New("mbtiles: destination file is not empty")
)

// InconsistentMetadataError is returned when two sampled tiles in the
// same archive disagree on detected tileinfo.Info.
type InconsistentMetadataError struct {
	Old, New tileinfo.Info
}

func (e *InconsistentMetadataError) Error() string {
	return fmt.Sprintf("mbtiles: inconsistent tile format detected: %s vs %s", e.Old, e.New)
}
