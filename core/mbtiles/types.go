package mbtiles

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/tileflux/martin/core/tileinfo"
)

// Bounds is a WGS84 bounding box, backed by orb.Bound, that
// round-trips as a plain 4-element JSON array per the TileJSON spec.
// Its ordering invariant (minx<=maxx, miny<=maxy) is checked by Valid.
type Bounds orb.Bound

func parseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds: want 4 comma-separated floats, got %d", len(parts))
	}
	var f [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds: %w", err)
		}
		f[i] = v
	}
	b := Bounds(orb.Bound{Min: orb.Point{f[0], f[1]}, Max: orb.Point{f[2], f[3]}})
	return b, nil
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	ob := orb.Bound(b)
	return json.Marshal([4]float64{ob.Min[0], ob.Min[1], ob.Max[0], ob.Max[1]})
}

func (b *Bounds) UnmarshalJSON(data []byte) error {
	var f [4]float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*b = Bounds(orb.Bound{Min: orb.Point{f[0], f[1]}, Max: orb.Point{f[2], f[3]}})
	return nil
}

// Valid reports whether the bound is well-ordered.
func (b Bounds) Valid() bool {
	ob := orb.Bound(b)
	return ob.Min[0] <= ob.Max[0] && ob.Min[1] <= ob.Max[1]
}

// Center is the TileJSON `center` triple: longitude, latitude, zoom.
type Center struct {
	Point orb.Point
	Zoom  int
}

func parseCenter(s string) (Center, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Center{}, fmt.Errorf("center: want 3 comma-separated floats, got %d", len(parts))
	}
	var f [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Center{}, fmt.Errorf("center: %w", err)
		}
		f[i] = v
	}
	return Center{Point: orb.Point{f[0], f[1]}, Zoom: int(f[2])}, nil
}

func (c Center) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{c.Point[0], c.Point[1], float64(c.Zoom)})
}

func (c *Center) UnmarshalJSON(data []byte) error {
	var f [3]float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.Point = orb.Point{f[0], f[1]}
	c.Zoom = int(f[2])
	return nil
}

// VectorLayer describes one MVT layer's schema. Other preserves any
// key besides the five below found in a layer's metadata JSON rather
// than dropping it.
type VectorLayer struct {
	ID          string            `json:"id"`
	Fields      map[string]string `json:"fields"`
	Description string            `json:"description,omitempty"`
	MinZoom     *uint8            `json:"minzoom,omitempty"`
	MaxZoom     *uint8            `json:"maxzoom,omitempty"`
	Other       map[string]any    `json:"-"`
}

// vectorLayerKnownKeys names the fields VectorLayer decodes
// explicitly; everything else round-trips through Other.
var vectorLayerKnownKeys = map[string]bool{
	"id": true, "fields": true, "description": true, "minzoom": true, "maxzoom": true,
}

func (v VectorLayer) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Other)+5)
	for k, val := range v.Other {
		out[k] = val
	}
	out["id"] = v.ID
	out["fields"] = v.Fields
	if v.Description != "" {
		out["description"] = v.Description
	}
	if v.MinZoom != nil {
		out["minzoom"] = *v.MinZoom
	}
	if v.MaxZoom != nil {
		out["maxzoom"] = *v.MaxZoom
	}
	return json.Marshal(out)
}

func (v *VectorLayer) UnmarshalJSON(data []byte) error {
	type alias VectorLayer
	aux := struct{ *alias }{alias: (*alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, r := range raw {
		if vectorLayerKnownKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(r, &val); err != nil {
			continue
		}
		if v.Other == nil {
			v.Other = map[string]any{}
		}
		v.Other[k] = val
	}
	return nil
}

// TileJSON is the recognised-key subset of a TileJSON document plus an
// open `other` bag for unrecognised keys.
type TileJSON struct {
	TileJSON     string            `json:"tilejson"`
	Name         string            `json:"name,omitempty"`
	Version      string            `json:"version,omitempty"`
	Description  string            `json:"description,omitempty"`
	Attribution  string            `json:"attribution,omitempty"`
	Legend       string            `json:"legend,omitempty"`
	Template     string            `json:"template,omitempty"`
	Bounds       *Bounds           `json:"bounds,omitempty"`
	Center       *Center           `json:"center,omitempty"`
	MinZoom      *uint8            `json:"minzoom,omitempty"`
	MaxZoom      *uint8            `json:"maxzoom,omitempty"`
	Tiles        []string          `json:"tiles"`
	VectorLayers []VectorLayer     `json:"vector_layers,omitempty"`
	Other        map[string]any    `json:"-"`
}

// ValidFor enforces the invariant: non-empty vector_layers implies MVT
// content. Checked by callers once the content type is known, since
// TileJSON alone doesn't carry the resolved tileinfo.Info.
func (t TileJSON) ValidFor(info tileinfo.Info) bool {
	if len(t.VectorLayers) > 0 && info.Format != tileinfo.MVT {
		return false
	}
	return true
}

// Metadata is the parsed result of reading a TDB's metadata table:
// the TileJSON fields, plus the layer_type and json sidecar the
// original martin-mbtiles code also tracks outside the TileJSON proper.
type Metadata struct {
	TileJSON  TileJSON
	LayerType string
	JSON      map[string]any
}
