package model_test

import (
	"context"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
)

// fakeSource is a minimal in-memory source.Source double, standing in
// for a TDB or PostGIS source in tests that don't need a real archive
// or database.
type fakeSource struct {
	id   string
	tj   mbtiles.TileJSON
	info tileinfo.Info
	tile []byte
	err  error
}

func (f *fakeSource) ID() string                 { return f.id }
func (f *fakeSource) TileJSON() mbtiles.TileJSON { return f.tj }
func (f *fakeSource) TileInfo() tileinfo.Info    { return f.info }
func (f *fakeSource) CloneHandle() source.Source { return f }

func (f *fakeSource) GetTile(_ context.Context, _ source.XYZ, _ source.Query) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tile, nil
}
