package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/tileinfo"
	"github.com/tileflux/martin/model"
)

func TestCatalogListsSourcesSortedByID(t *testing.T) {
	reg := model.NewRegistry(nil)
	reg.Register(&fakeSource{
		id:   "zebra",
		tj:   mbtiles.TileJSON{Name: "Zebra layer", Description: "stripes"},
		info: tileinfo.Info{Format: tileinfo.MVT},
	})
	reg.Register(&fakeSource{
		id:   "aerial",
		tj:   mbtiles.TileJSON{Name: "Aerial imagery"},
		info: tileinfo.Info{Format: tileinfo.PNG},
	})

	entries := model.Catalog(reg)
	require.Len(t, entries, 2)
	assert.Equal(t, "aerial", entries[0].ID)
	assert.Equal(t, "image/png", entries[0].ContentType)
	assert.Equal(t, "zebra", entries[1].ID)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", entries[1].ContentType)
	assert.Equal(t, "stripes", entries[1].Description)
}

func TestCatalogEmptyRegistryReturnsEmptySlice(t *testing.T) {
	reg := model.NewRegistry(nil)
	entries := model.Catalog(reg)
	assert.Empty(t, entries)
}
