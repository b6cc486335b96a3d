package mbtiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/google/logger"

	"github.com/tileflux/martin/core/tileinfo"
)

// GetMetadataValue reads a single metadata value by name. It returns
// ("", false, nil) if the key is absent or its stored value is empty.
func (m *Mbtiles) GetMetadataValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE name = ? AND value IS NOT ''`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// GetMetadata reads the full metadata table and resolves the archive's
// content type by sampling tiles. It is pure with respect to the file:
// repeated calls return equal results (spec.md §8 property 3).
func (m *Mbtiles) GetMetadata(ctx context.Context) (Metadata, tileinfo.Info, error) {
	md, err := m.parseMetadataTable(ctx)
	if err != nil {
		return Metadata{}, tileinfo.Info{}, err
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return Metadata{}, tileinfo.Info{}, err
	}
	defer conn.Close()

	info, err := m.detectContentType(ctx, conn, &md)
	if err != nil {
		return Metadata{}, tileinfo.Info{}, err
	}

	return md, info, nil
}

func (m *Mbtiles) parseMetadataTable(ctx context.Context) (Metadata, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name, value FROM metadata WHERE value IS NOT ''`)
	if err != nil {
		return Metadata{}, err
	}
	defer rows.Close()

	tj := TileJSON{Tiles: []string{}, Other: map[string]any{}}
	md := Metadata{JSON: map[string]any{}}

	var rawJSON string
	var hasRawJSON bool

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, err
		}
		if value == "" {
			continue
		}

		switch name {
		case "name":
			tj.Name = value
		case "version":
			tj.Version = value
		case "description":
			tj.Description = value
		case "attribution":
			tj.Attribution = value
		case "legend":
			tj.Legend = value
		case "template":
			tj.Template = value
		case "bounds":
			b, err := parseBounds(value)
			if err != nil {
				logger.Warningf("mbtiles %s: unable to parse metadata bounds value: %v", m.filename, err)
				break
			}
			tj.Bounds = &b
		case "center":
			c, err := parseCenter(value)
			if err != nil {
				logger.Warningf("mbtiles %s: unable to parse metadata center value: %v", m.filename, err)
				break
			}
			tj.Center = &c
		case "minzoom":
			z, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				logger.Warningf("mbtiles %s: unable to parse metadata minzoom value: %v", m.filename, err)
				break
			}
			zz := uint8(z)
			tj.MinZoom = &zz
		case "maxzoom":
			z, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				logger.Warningf("mbtiles %s: unable to parse metadata maxzoom value: %v", m.filename, err)
				break
			}
			zz := uint8(z)
			tj.MaxZoom = &zz
		case "type":
			md.LayerType = value
		case "json":
			rawJSON = value
			hasRawJSON = true
		case "format", "generator":
			tj.Other[name] = value
		default:
			logger.Warningf("mbtiles %s: unrecognized metadata value %s=%s", m.filename, name, value)
			tj.Other[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, err
	}

	if hasRawJSON {
		var obj map[string]any
		if err := json.Unmarshal([]byte(rawJSON), &obj); err != nil {
			logger.Warningf("mbtiles %s: unable to parse metadata json value: %v", m.filename, err)
		} else {
			if vl, ok := obj["vector_layers"]; ok {
				delete(obj, "vector_layers")
				if layers, err := decodeVectorLayers(vl); err != nil {
					logger.Warningf("mbtiles %s: unable to parse metadata vector_layers value: %v", m.filename, err)
				} else {
					tj.VectorLayers = layers
				}
			}
			md.JSON = obj
		}
	}

	if tj.MaxZoom != nil && tj.MinZoom != nil && *tj.MaxZoom < *tj.MinZoom {
		logger.Warningf("mbtiles %s: maxzoom %d is below minzoom %d, dropping both", m.filename, *tj.MaxZoom, *tj.MinZoom)
		tj.MinZoom, tj.MaxZoom = nil, nil
	}

	md.TileJSON = tj
	return md, nil
}

func decodeVectorLayers(v any) ([]VectorLayer, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var layers []VectorLayer
	if err := json.Unmarshal(b, &layers); err != nil {
		return nil, err
	}
	return layers, nil
}

// detectContentType implements spec.md §4.2's sampling and tie-break
// policy. It reads md's minzoom/maxzoom bounds, `format` value and
// vector_layers, but never modifies md.
func (m *Mbtiles) detectContentType(ctx context.Context, conn *sql.Conn, md *Metadata) (tileinfo.Info, error) {
	var detected *tileinfo.Info
	testedZoom := -1

	zoom, data, found, err := m.sampleAny(ctx, conn)
	if err != nil {
		return tileinfo.Info{}, err
	}
	if found {
		if info, ok := tileinfo.Detect(data); ok || len(data) > 0 {
			detected = &info
		}
		testedZoom = int(zoom)
	}

	minZ := uint8(0)
	if md.TileJSON.MinZoom != nil {
		minZ = *md.TileJSON.MinZoom
	}
	maxZ := uint8(18)
	if md.TileJSON.MaxZoom != nil {
		maxZ = *md.TileJSON.MaxZoom
	}

	for z := int(minZ); z <= int(maxZ); z++ {
		if z == testedZoom {
			continue
		}
		data, found, err := m.sampleAtZoom(ctx, conn, uint8(z))
		if err != nil {
			return tileinfo.Info{}, err
		}
		if !found {
			continue
		}
		info, ok := tileinfo.Detect(data)
		if !ok && len(data) == 0 {
			continue
		}
		switch {
		case detected == nil:
			detected = &info
		case *detected == info:
			// consistent
		default:
			return tileinfo.Info{}, &InconsistentMetadataError{Old: *detected, New: info}
		}
	}

	if metaFormat, ok := md.TileJSON.Other["format"]; ok {
		if s, ok := metaFormat.(string); ok {
			if fmtVal, parsed := tileinfo.Parse(s); parsed {
				switch {
				case detected == nil:
					info := tileinfo.Info{Format: fmtVal, Encoding: tileinfo.Identity}
					if tileinfo.Detectable(info) {
						logger.Warningf("mbtiles %s: metadata declares detectable format %q but no tile confirmed it", m.filename, s)
					} else {
						logger.Infof("mbtiles %s: using format %q from metadata, no tiles sampled", m.filename, s)
					}
					detected = &info
				case detected.Format == fmtVal:
					// confirmed
				default:
					logger.Warningf("mbtiles %s: metadata declares format %q but tiles detected as %s; using detected value", m.filename, s, detected)
				}
			} else {
				logger.Warningf("mbtiles %s: unknown format value in metadata: %q", m.filename, s)
			}
		}
	}

	if detected == nil {
		return tileinfo.Info{}, ErrNoTilesFound
	}

	if detected.Format != tileinfo.MVT && len(md.TileJSON.VectorLayers) > 0 {
		logger.Warningf("mbtiles %s: has vector_layers metadata but non-vector tiles", m.filename)
	}

	return *detected, nil
}
