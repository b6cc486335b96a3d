// Command martin serves vector and raster tiles from a spatial
// database and/or TDB archive files over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tileflux/martin/core/config"
	"github.com/tileflux/martin/core/mbtiles"
	"github.com/tileflux/martin/core/pg"
	"github.com/tileflux/martin/core/server"
	"github.com/tileflux/martin/core/source"
	"github.com/tileflux/martin/model"
	"github.com/tileflux/martin/route"
)

func main() {
	defLog := logger.Init("martin", true, false, io.Discard)
	defer defLog.Close()

	if err := newRootCommand().Execute(); err != nil {
		logger.Errorf("martin: %v", err)
		os.Exit(1)
	}
}

var flagNames = []string{
	"connection-string", "save-config", "listen-addresses", "keep-alive",
	"workers", "pool-size", "default-srid", "ca-root-file",
	"danger-accept-invalid-certs",
}

func newRootCommand() *cobra.Command {
	fv := config.FlagValues{Set: map[string]bool{}}
	var configPath string

	cmd := &cobra.Command{
		Use:   "martin [connection]",
		Short: "Serve vector and raster tiles over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range flagNames {
				if cmd.Flags().Changed(name) {
					fv.Set[name] = true
				}
			}
			if len(args) == 1 {
				fv.ConnectionString = args[0]
				fv.Set["connection-string"] = true
			}
			return run(configPath, fv)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&fv.SaveConfigPath, "save-config", "", "write the reconciled config as YAML to this path (or '-' for stdout) instead of starting the server")
	flags.StringVar(&fv.ListenAddresses, "listen-addresses", "", "address to listen on")
	flags.IntVar(&fv.KeepAlive, "keep-alive", 0, "connection keep-alive timeout in seconds")
	flags.IntVar(&fv.WorkerProcesses, "workers", 0, "number of worker processes")
	flags.Uint32Var(&fv.PoolSize, "pool-size", 0, "spatial-DB connection pool size")
	flags.IntVar(&fv.DefaultSRID, "default-srid", 0, "SRID assumed for geometry columns with no recorded SRID")
	flags.StringVar(&fv.CACertFile, "ca-root-file", "", "path to a custom CA root certificate")
	flags.BoolVar(&fv.DangerAcceptInvalidCerts, "danger-accept-invalid-certs", false, "disable TLS certificate verification for the spatial-DB connection")
	flags.StringSliceVar(&fv.MBTilesPaths, "mbtiles", nil, "TDB archive file or directory to serve (repeatable)")

	return cmd
}

func run(configPath string, fv config.FlagValues) error {
	opts := config.FromFlags(fv)

	envOpts := config.FromEnv()
	opts.Merge(envOpts)

	if configPath != "" {
		yamlOpts, err := config.LoadYAML(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts.Merge(yamlOpts)
	}

	cfg, err := opts.Finalize()
	if err != nil {
		return err
	}
	for _, key := range cfg.Unrecognized {
		logger.Warningf("martin: unrecognized config key %q", key)
	}
	for _, name := range cfg.NonUTF8Env {
		logger.Warningf("martin: environment variable %s is not valid UTF-8", name)
	}
	if len(cfg.Unrecognized) > 0 || len(cfg.NonUTF8Env) > 0 {
		model.SetWarning()
	}

	if cfg.SaveConfigPath != "" {
		return config.Save(cfg, cfg.SaveConfigPath)
	}

	if cfg.WorkerProcesses > 0 {
		runtime.GOMAXPROCS(cfg.WorkerProcesses)
	}

	ctx := context.Background()

	pool, err := buildPool(ctx, cfg)
	if err != nil {
		return err
	}

	reg := model.NewRegistry(pool)

	if pool != nil {
		pgSources, err := pg.Configure(ctx, toPGConfig(cfg), pool, pg.NewCatalog(pool), source.NewIDResolver())
		if err != nil {
			return fmt.Errorf("configure spatial-DB sources: %w", err)
		}
		for _, s := range pgSources {
			reg.Register(s)
		}
	}

	registerTDBSources(reg, cfg.MBTilesPaths)

	h := route.Load(reg)
	return server.ListenAndServe(server.Config{
		ListenAddresses: cfg.ListenAddresses,
		KeepAlive:       cfg.KeepAlive,
	}, h)
}

func buildPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.ConnectionString == "" {
		return nil, nil
	}
	return pg.NewPool(ctx, toPGConfig(cfg), cfg.DangerAcceptInvalidCerts)
}

func toPGConfig(cfg config.Config) pg.Config {
	tables := make(map[string]pg.TableEntry, len(cfg.Tables))
	for k, t := range cfg.Tables {
		tables[k] = pg.TableEntry{
			Schema:         t.Schema,
			Table:          t.Table,
			GeometryColumn: t.GeometryColumn,
			SRID:           t.SRID,
			Extent:         t.Extent,
			Buffer:         t.Buffer,
			ClipGeom:       t.ClipGeom != nil && *t.ClipGeom,
			MinZoom:        t.MinZoom,
			MaxZoom:        t.MaxZoom,
		}
	}
	functions := make(map[string]pg.FunctionEntry, len(cfg.Functions))
	for k, f := range cfg.Functions {
		functions[k] = pg.FunctionEntry{Schema: f.Schema, Name: f.Name}
	}

	return pg.Config{
		ConnectionString: cfg.ConnectionString,
		TLSCertPath:      cfg.CACertFile,
		PoolSize:         int(cfg.PoolSize),
		DefaultSRID:      cfg.DefaultSRID,
		Tables:           tables,
		Functions:        functions,
	}
}

// registerTDBSources opens every configured path (a single archive
// file, or a directory scanned one level deep for *.mbtiles files) and
// registers one TDBSource per archive, each ID resolved against a
// resolver that already knows about every PostGIS source's ID so the
// two sets of sources can never collide. A single archive failing to
// open or parse is fatal only for that archive — the rest still start
// (spec.md §7: "TDB-open errors ... Fatal for that source; other
// sources continue"), with the process marked degraded.
func registerTDBSources(reg *model.Registry, paths []string) {
	resolver := source.NewIDResolver()
	for _, s := range reg.All() {
		resolver.Resolve(s.ID())
	}

	for _, p := range paths {
		files, err := expandMBTilesPath(p)
		if err != nil {
			logger.Errorf("martin: %s: %v", p, err)
			model.SetWarning()
			continue
		}
		for _, f := range files {
			m, err := mbtiles.Open(f)
			if err != nil {
				logger.Errorf("martin: open %s: %v", f, err)
				model.SetWarning()
				continue
			}
			id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			id = resolver.Resolve(id)
			ts, err := source.NewTDBSource(id, m)
			if err != nil {
				logger.Errorf("martin: load metadata for %s: %v", f, err)
				model.SetWarning()
				m.Close()
				continue
			}
			reg.Register(ts)
		}
	}
}

func expandMBTilesPath(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mbtiles" {
			continue
		}
		out = append(out, filepath.Join(p, e.Name()))
	}
	return out, nil
}
