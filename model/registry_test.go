package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/pg"
	"github.com/tileflux/martin/core/tileinfo"
	"github.com/tileflux/martin/model"
)

func TestRegistryResolveReturnsRegisteredSource(t *testing.T) {
	reg := model.NewRegistry(nil)
	reg.Register(&fakeSource{id: "roads", info: tileinfo.Info{Format: tileinfo.MVT}})

	s, err := reg.Resolve("roads")
	require.NoError(t, err)
	assert.Equal(t, "roads", s.ID())
}

func TestRegistryResolveUnknownIDErrors(t *testing.T) {
	reg := model.NewRegistry(nil)
	_, err := reg.Resolve("missing")
	assert.Error(t, err)
}

func TestRegistryResolveCompositeBuildsOverRegisteredTableSources(t *testing.T) {
	reg := model.NewRegistry(nil)
	roads := pg.NewTableSource("roads", nil, pg.TableEntry{Schema: "public", Table: "roads", GeometryColumn: "geom", Extent: 4096, Buffer: 64})
	parcels := pg.NewTableSource("parcels", nil, pg.TableEntry{Schema: "public", Table: "parcels", GeometryColumn: "geom", Extent: 4096, Buffer: 64})
	reg.Register(roads)
	reg.Register(parcels)

	s, err := reg.Resolve("roads,parcels")
	require.NoError(t, err)

	tj := s.TileJSON()
	require.Len(t, tj.VectorLayers, 2)
	assert.Equal(t, "roads", tj.VectorLayers[0].ID)
	assert.Equal(t, "parcels", tj.VectorLayers[1].ID)
}

func TestRegistryResolveCompositeRejectsUnknownComponent(t *testing.T) {
	reg := model.NewRegistry(nil)
	roads := pg.NewTableSource("roads", nil, pg.TableEntry{Schema: "public", Table: "roads", GeometryColumn: "geom"})
	reg.Register(roads)

	_, err := reg.Resolve("roads,missing")
	assert.Error(t, err)
}

func TestRegistryAllReturnsSnapshot(t *testing.T) {
	reg := model.NewRegistry(nil)
	reg.Register(&fakeSource{id: "a", tj: mbtiles.TileJSON{Name: "A"}})
	reg.Register(&fakeSource{id: "b", tj: mbtiles.TileJSON{Name: "B"}})

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "A", all["a"].TileJSON().Name)
}
