package view

import (
	"encoding/json"
	"net/http"

	"github.com/google/logger"

	"github.com/tileflux/martin/core/tileinfo"
	"github.com/tileflux/martin/model"
)

const contentTypeJSON = "application/json"

// RenderJSON encodes the input data into JSON and sends it as response
func RenderJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(&data); err != nil {
		logger.Error(err)
	}
}

// Tile writes a tile payload, setting Content-Encoding when the
// payload's sniffed encoding isn't identity (spec.md §6).
func Tile(w http.ResponseWriter, t *model.Tile, status int) {
	w.Header().Set("Content-Type", t.Info.ContentType())
	if t.Info.Encoding != tileinfo.Identity {
		w.Header().Set("Content-Encoding", string(t.Info.Encoding))
	}
	w.WriteHeader(status)

	w.Write(t.Data)
}
