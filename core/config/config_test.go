package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/config"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestFinalizeAppliesHardDefaults(t *testing.T) {
	opts := config.Options{ConnectionString: strp("postgres://x")}
	cfg, err := opts.Finalize()
	require.NoError(t, err)

	assert.Equal(t, config.KeepAliveDefault, cfg.KeepAlive)
	assert.Equal(t, config.ListenAddressesDefault, cfg.ListenAddresses)
	assert.Equal(t, config.PoolSizeDefault, cfg.PoolSize)
	assert.Greater(t, cfg.WorkerProcesses, 0)
}

func TestFinalizeRequiresConnectionStringWithNoSourcesAtAll(t *testing.T) {
	_, err := config.Options{}.Finalize()
	assert.ErrorIs(t, err, config.ErrNoConnectionString)
}

func TestFinalizeAllowsMissingConnectionStringWithMBTilesOnly(t *testing.T) {
	cfg, err := config.Options{MBTilesPaths: []string{"/data/world.mbtiles"}}.Finalize()
	require.NoError(t, err)
	assert.Empty(t, cfg.ConnectionString)
	assert.Equal(t, []string{"/data/world.mbtiles"}, cfg.MBTilesPaths)
}

func TestMergePrefersHigherPrecedenceLayer(t *testing.T) {
	cli := config.Options{ListenAddresses: strp("127.0.0.1:9000")}
	yamlLayer := config.Options{ConnectionString: strp("postgres://x"), ListenAddresses: strp("0.0.0.0:4000"), KeepAlive: intp(30)}

	merged := cli.Merge(yamlLayer)
	cfg, err := merged.Finalize()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddresses) // cli wins
	assert.Equal(t, 30, cfg.KeepAlive)                      // yaml fills the gap
}

func TestMergeDoesNotOverwriteAlreadySetField(t *testing.T) {
	high := config.Options{KeepAlive: intp(10)}
	low := config.Options{KeepAlive: intp(999)}

	high.Merge(low)
	assert.Equal(t, 10, *high.KeepAlive)
}

func TestLoadYAMLCollectsUnrecognizedTopLevelKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "martin.yaml")
	writeFile(t, path, "connection_string: postgres://x\nbogus_key: 1\n")

	opts, err := config.LoadYAML(path)
	require.NoError(t, err)
	require.NotNil(t, opts.ConnectionString)
	assert.Equal(t, "postgres://x", *opts.ConnectionString)

	cfg, err := opts.Finalize()
	require.NoError(t, err)
	assert.Contains(t, cfg.Unrecognized, "bogus_key")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := config.Config{
		ConnectionString: "postgres://roundtrip",
		KeepAlive:        42,
		ListenAddresses:  "0.0.0.0:9999",
		PoolSize:         7,
	}
	require.NoError(t, config.Save(cfg, path))

	opts, err := config.LoadYAML(path)
	require.NoError(t, err)
	require.NotNil(t, opts.ConnectionString)
	assert.Equal(t, "postgres://roundtrip", *opts.ConnectionString)
	require.NotNil(t, opts.KeepAlive)
	assert.Equal(t, 42, *opts.KeepAlive)
}

func TestFromFlagsOnlyIncludesExplicitlySetFlags(t *testing.T) {
	fv := config.FlagValues{
		ListenAddresses: "1.2.3.4:5",
		PoolSize:        999, // not marked Set, must be ignored
		Set:             map[string]bool{"listen-addresses": true},
	}
	opts := config.FromFlags(fv)

	require.NotNil(t, opts.ListenAddresses)
	assert.Equal(t, "1.2.3.4:5", *opts.ListenAddresses)
	assert.Nil(t, opts.PoolSize)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
