package controller

import (
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/model"
	"github.com/tileflux/martin/view"
)

// defaultHost is an optional operator-set override for the scheme and
// host TileJSON tile templates are rewritten against, used when a
// request carries no usable x-rewrite-url header; when set, it takes
// precedence over the request's own Host. Unlike the host the teacher's
// original build required at startup, this one is genuinely optional:
// per-request resolution (x-rewrite-url or Host) covers the common
// reverse-proxy case on its own.
var defaultHost *url.URL

func init() {
	if env := os.Getenv("HOST_URL"); len(env) > 0 {
		u, err := url.Parse(env)
		if err != nil {
			os.Stderr.WriteString("controller: invalid HOST_URL: " + err.Error() + "\n")
			os.Exit(2)
		}
		defaultHost = u
	}
}

// Deps carries the state handlers need; route.Load wires a *Deps into
// each httprouter.Handle via a closure, matching the teacher's choice
// of package-level handler functions while avoiding a package-level
// registry global.
type Deps struct {
	Registry *model.Registry
}

// IndexGET answers the bare root with a short service banner, mirroring
// the teacher's original index endpoint.
func (d *Deps) IndexGET(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view.RenderJSON(w, model.NewResponse("martin tile server", http.StatusOK), http.StatusOK)
}

// HealthGET reports process health for a load balancer's liveness probe.
func (d *Deps) HealthGET(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h := model.GetHealth()
	status := http.StatusOK
	if !h.OK {
		status = http.StatusServiceUnavailable
	}
	view.RenderJSON(w, h, status)
}

// CatalogGET lists every registered source.
func (d *Deps) CatalogGET(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view.RenderJSON(w, model.Catalog(d.Registry), http.StatusOK)
}

// TileJSONGET serves the TileJSON document for :id, which carries
// a literal ".json" suffix (e.g. "roads.json" or "roads,parcels.json"
// for a composite).
func (d *Deps) TileJSONGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idjson := ps.ByName("id")
	id, ok := strings.CutSuffix(idjson, ".json")
	if !ok {
		res := model.NewResponse("not found", http.StatusNotFound)
		view.RenderJSON(w, res, res.StatusCode)
		return
	}

	base := resolveBase(r)

	tj, err := model.GetTileJSON(d.Registry, id, base, r.URL.RawQuery)
	if err != nil {
		res := model.NewResponse("source not found", http.StatusNotFound)
		view.RenderJSON(w, res, res.StatusCode)
		return
	}

	view.RenderJSON(w, tj, http.StatusOK)
}

// TileGET serves one tile at :id/:z/:x/:yfmt, where yfmt carries the
// requested format as a ".<format>" suffix (e.g. "5.mvt").
func (d *Deps) TileGET(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	z := ps.ByName("z")
	x := ps.ByName("x")
	yfmt := ps.ByName("yfmt")

	query := source.Query{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	tile, err := model.GetTile(r.Context(), d.Registry, id, z, x, yfmt, query)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoEntity):
			res := model.NewResponse("source not found", http.StatusNotFound)
			view.RenderJSON(w, res, res.StatusCode)
		case errors.Is(err, model.ErrEmptyTile):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, model.ErrBadInput):
			res := model.NewResponse(err.Error(), http.StatusBadRequest)
			view.RenderJSON(w, res, res.StatusCode)
		default:
			res := model.NewResponse(err.Error(), http.StatusInternalServerError)
			view.RenderJSON(w, res, res.StatusCode)
		}
		return
	}

	hash := hex.EncodeToString(tile.Hash[:])
	if r.Header.Get("If-None-Match") == hash {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", hash)

	view.Tile(w, tile, http.StatusOK)
}

// resolveBase determines the scheme+host TileJSON tile templates are
// rewritten against: an x-rewrite-url header takes precedence (spec.md
// §6, the reverse-proxy case), then the operator's HOST_URL, then the
// request's own Host.
func resolveBase(r *http.Request) *url.URL {
	if rw := r.Header.Get("x-rewrite-url"); rw != "" {
		if u, err := url.Parse(rw); err == nil && u.Scheme != "" && u.Host != "" {
			return u
		}
	}
	if defaultHost != nil {
		return defaultHost
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return &url.URL{Scheme: scheme, Host: r.Host}
}
