package route

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	cntrl "github.com/tileflux/martin/controller"
	"github.com/tileflux/martin/middleware/cors"
	"github.com/tileflux/martin/model"
)

// Load returns a router with defined routes, dispatching against reg.
func Load(reg *model.Registry) *httprouter.Router {
	return routes(&cntrl.Deps{Registry: reg})
}

func routes(d *cntrl.Deps) *httprouter.Router {
	r := httprouter.New()

	r.GET("/", middlwares(d.IndexGET))

	// :id carries a literal ".json" suffix here, so a comma-separated
	// composite like "roads,parcels.json" is still one path segment.
	// httprouter requires the same wildcard name at a given tree
	// position across all registered routes, hence ":id" rather than
	// ":idjson" even though the handler strips a ".json" suffix from it.
	// httprouter also rejects static routes beside a wildcard in the same
	// segment, so /health, /catalog and /favicon.ico are dispatched by name.
	r.GET("/:id", middlwares(func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		switch ps.ByName("id") {
		case "health":
			d.HealthGET(w, req, ps)
		case "catalog":
			d.CatalogGET(w, req, ps)
		case "favicon.ico":
			http.NotFound(w, req)
		default:
			d.TileJSONGET(w, req, ps)
		}
	}))
	r.GET("/:id/:z/:x/:yfmt", middlwares(d.TileGET))

	r.RedirectTrailingSlash = true
	r.HandleOPTIONS = true

	return r
}

func middlwares(h httprouter.Handle) httprouter.Handle {
	return cors.Handler(h)
}
