package mbtiles_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/tileinfo"
)

var gifBytes = []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}

func TestGetMetadataParsesBoundsAndCenter(t *testing.T) {
	path := directTilesFixture(t, "fields.mbtiles", map[uint8][]byte{0: pngBytes}, map[string]string{
		"bounds": "-123.123590,-37.818085,174.763027,59.352706",
		"center": "-90.0,5.0,3",
		"name":   "World",
	})
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	md, info, err := m.GetMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "World", md.TileJSON.Name)
	require.NotNil(t, md.TileJSON.Bounds)
	assert.InDelta(t, -123.123590, md.TileJSON.Bounds.Min[0], 1e-6)
	assert.InDelta(t, 59.352706, md.TileJSON.Bounds.Max[1], 1e-6)
	require.NotNil(t, md.TileJSON.Center)
	assert.Equal(t, 3, md.TileJSON.Center.Zoom)
	assert.Equal(t, tileinfo.Info{Format: tileinfo.PNG, Encoding: tileinfo.Identity}, info)
}

func TestGetMetadataDropsMalformedBounds(t *testing.T) {
	path := directTilesFixture(t, "badbounds.mbtiles", map[uint8][]byte{0: pngBytes}, map[string]string{
		"bounds": "not-a-bound",
	})
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	md, _, err := m.GetMetadata(context.Background())
	require.NoError(t, err)
	assert.Nil(t, md.TileJSON.Bounds)
}

func TestGetMetadataDropsMaxZoomBelowMinZoom(t *testing.T) {
	path := directTilesFixture(t, "badzoom.mbtiles", map[uint8][]byte{0: pngBytes}, map[string]string{
		"minzoom": "5",
		"maxzoom": "2",
	})
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	md, _, err := m.GetMetadata(context.Background())
	require.NoError(t, err)
	assert.Nil(t, md.TileJSON.MinZoom)
	assert.Nil(t, md.TileJSON.MaxZoom)
}

func TestGetMetadataInconsistentFormatErrors(t *testing.T) {
	path := directTilesFixture(t, "inconsistent.mbtiles", map[uint8][]byte{
		0: pngBytes,
		1: gifBytes,
	}, map[string]string{"minzoom": "0", "maxzoom": "1"})
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	_, _, err = m.GetMetadata(context.Background())
	require.Error(t, err)
	var inconsistent *mbtiles.InconsistentMetadataError
	assert.ErrorAs(t, err, &inconsistent)
}

func TestGetMetadataNoTilesFound(t *testing.T) {
	path := directTilesFixture(t, "notiles.mbtiles", nil, nil)
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	_, _, err = m.GetMetadata(context.Background())
	assert.ErrorIs(t, err, mbtiles.ErrNoTilesFound)
}

func TestGetMetadataVectorLayersFromJSON(t *testing.T) {
	path := directTilesFixture(t, "vl.mbtiles", map[uint8][]byte{
		0: mvtGzipBytes(),
	}, map[string]string{
		"json": `{"vector_layers":[{"id":"roads","fields":{"name":"String"},"buffer_size":16}]}`,
	})
	m, err := mbtiles.Open(path)
	require.NoError(t, err)
	defer m.Close()

	md, info, err := m.GetMetadata(context.Background())
	require.NoError(t, err)
	require.Len(t, md.TileJSON.VectorLayers, 1)
	assert.Equal(t, "roads", md.TileJSON.VectorLayers[0].ID)
	assert.Equal(t, float64(16), md.TileJSON.VectorLayers[0].Other["buffer_size"])
	assert.Equal(t, tileinfo.MVT, info.Format)
	assert.Equal(t, tileinfo.Gzip, info.Encoding)
}

func mvtGzipBytes() []byte {
	return []byte{0x1f, 0x8b, 0x08, 0, 0, 0, 0, 0}
}
