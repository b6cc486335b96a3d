package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/config"
)

func TestFromEnvReadsRecognizedVariables(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("DEFAULT_SRID", "3857")
	t.Setenv("MARTIN_MBTILES_PATHS", "/a.mbtiles:/b.mbtiles")

	opts := config.FromEnv()

	require.NotNil(t, opts.ConnectionString)
	assert.Equal(t, "postgres://env", *opts.ConnectionString)
	require.NotNil(t, opts.DefaultSRID)
	assert.Equal(t, 3857, *opts.DefaultSRID)
	assert.Equal(t, []string{"/a.mbtiles", "/b.mbtiles"}, opts.MBTilesPaths)
}

func TestFromEnvFlagsNonUTF8ValueAsSoftWarning(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ok\xff")

	opts := config.FromEnv()
	cfg, err := opts.Finalize()
	require.NoError(t, err)

	assert.Contains(t, cfg.NonUTF8Env, "DATABASE_URL")
}

func TestFromEnvDropsUnparsableNumericValue(t *testing.T) {
	t.Setenv("DEFAULT_SRID", "not-a-number")

	opts := config.FromEnv()

	assert.Nil(t, opts.DefaultSRID)
}
