package source

import (
	"context"
	"fmt"

	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/tileinfo"
)

// TDBSource adapts an open mbtiles.Mbtiles archive to the Source
// interface. Its TileJSON and TileInfo are resolved once at
// construction time from the archive's metadata table.
type TDBSource struct {
	id       string
	m        *mbtiles.Mbtiles
	tileJSON mbtiles.TileJSON
	info     tileinfo.Info
}

// NewTDBSource reads m's metadata and builds a Source with the given
// resolved id. The returned TileJSON's `tiles` field is a single XYZ
// URL template rooted at id, per spec.md §6.
func NewTDBSource(id string, m *mbtiles.Mbtiles) (*TDBSource, error) {
	md, info, err := m.GetMetadata(context.Background())
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", id, err)
	}

	tj := md.TileJSON
	tj.Tiles = []string{fmt.Sprintf("/%s/{z}/{x}/{y}.%s", id, info.Format)}

	return &TDBSource{id: id, m: m, tileJSON: tj, info: info}, nil
}

func (s *TDBSource) ID() string                      { return s.id }
func (s *TDBSource) TileJSON() mbtiles.TileJSON       { return s.tileJSON }
func (s *TDBSource) TileInfo() tileinfo.Info          { return s.info }
func (s *TDBSource) CloneHandle() Source              { return s }

// GetTile ignores query; TDB archives do not consult request params.
func (s *TDBSource) GetTile(ctx context.Context, xyz XYZ, _ Query) ([]byte, error) {
	data, err := s.m.GetTile(ctx, xyz.Z, xyz.X, xyz.Y)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []byte{}, nil
	}
	return data, nil
}
