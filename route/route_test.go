package route_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/core/tileinfo"
	"github.com/tileflux/martin/model"
	"github.com/tileflux/martin/route"
)

type stubSource struct {
	id   string
	tj   mbtiles.TileJSON
	info tileinfo.Info
	tile []byte
}

func (s *stubSource) ID() string                 { return s.id }
func (s *stubSource) TileJSON() mbtiles.TileJSON { return s.tj }
func (s *stubSource) TileInfo() tileinfo.Info    { return s.info }
func (s *stubSource) CloneHandle() source.Source { return s }
func (s *stubSource) GetTile(context.Context, source.XYZ, source.Query) ([]byte, error) {
	return s.tile, nil
}

func TestRouteDispatchesTileJSONAndTile(t *testing.T) {
	reg := model.NewRegistry(nil)
	reg.Register(&stubSource{
		id:   "aerial",
		tj:   mbtiles.TileJSON{Tiles: []string{"/aerial/{z}/{x}/{y}.png"}},
		info: tileinfo.Info{Format: tileinfo.PNG},
		tile: []byte{1, 2, 3},
	})
	r := route.Load(reg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/aerial.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/aerial/{z}/{x}/{y}.png")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/aerial/5/3/2.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{1, 2, 3}, w.Body.Bytes())
}

func TestRouteHealthAndCatalogAreStaticNotShadowedByWildcard(t *testing.T) {
	reg := model.NewRegistry(nil)
	r := route.Load(reg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}
