package model

import (
	"sort"

	"github.com/tileflux/martin/core/tileinfo"
)

// CatalogEntry is one row of the /catalog listing: just enough for a
// client to decide which source to request without fetching every
// TileJSON up front (spec.md §6).
type CatalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	Description string `json:"description,omitempty"`
}

// Catalog lists every registered source, sorted by ID for a stable
// response across requests.
func Catalog(reg *Registry) []CatalogEntry {
	all := reg.All()
	entries := make([]CatalogEntry, 0, len(all))
	for id, s := range all {
		tj := s.TileJSON()
		entries = append(entries, CatalogEntry{
			ID:          id,
			Name:        tj.Name,
			ContentType: contentType(s.TileInfo()),
			Description: tj.Description,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func contentType(info tileinfo.Info) string {
	return info.ContentType()
}
