package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDoc is the recognised on-disk shape; fields mirror Options but
// as plain (non-pointer) YAML-friendly types, since YAML's own
// "absent key" already gives us the optionality Options needs.
type yamlDoc struct {
	ConnectionString         string                   `yaml:"connection_string"`
	CACertFile               string                   `yaml:"ca_root_file"`
	DangerAcceptInvalidCerts bool                     `yaml:"danger_accept_invalid_certs"`
	DefaultSRID              int                      `yaml:"default_srid"`
	KeepAlive                int                      `yaml:"keep_alive"`
	ListenAddresses          string                   `yaml:"listen_addresses"`
	PoolSize                 uint32                   `yaml:"pool_size"`
	WorkerProcesses          int                      `yaml:"worker_processes"`
	Tables                   map[string]TableEntry    `yaml:"tables"`
	Functions                map[string]FunctionEntry `yaml:"functions"`
	MBTilesPaths             []string                 `yaml:"mbtiles"`
}

var recognizedTopLevelKeys = map[string]bool{
	"connection_string": true, "ca_root_file": true, "danger_accept_invalid_certs": true,
	"default_srid": true, "keep_alive": true, "listen_addresses": true, "pool_size": true,
	"worker_processes": true, "tables": true, "functions": true, "mbtiles": true,
}

// LoadYAML reads path and returns the Options it describes. Top-level
// keys it doesn't recognize are recorded in the returned Options and
// surface as Config.Unrecognized, warned about by the caller, never
// fatal (spec.md §4.7). Keys nested inside `tables` or `functions`
// entries are not checked; unknown ones there are silently ignored.
func LoadYAML(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	var unrecognized []string
	for key := range raw {
		if !recognizedTopLevelKeys[key] {
			unrecognized = append(unrecognized, key)
		}
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	opts := Options{unrecognized: unrecognized}
	if doc.ConnectionString != "" {
		opts.ConnectionString = &doc.ConnectionString
	}
	if doc.CACertFile != "" {
		opts.CACertFile = &doc.CACertFile
	}
	if doc.DangerAcceptInvalidCerts {
		v := true
		opts.DangerAcceptInvalidCerts = &v
	}
	if doc.DefaultSRID != 0 {
		opts.DefaultSRID = &doc.DefaultSRID
	}
	if doc.KeepAlive != 0 {
		opts.KeepAlive = &doc.KeepAlive
	}
	if doc.ListenAddresses != "" {
		opts.ListenAddresses = &doc.ListenAddresses
	}
	if doc.PoolSize != 0 {
		opts.PoolSize = &doc.PoolSize
	}
	if doc.WorkerProcesses != 0 {
		opts.WorkerProcesses = &doc.WorkerProcesses
	}
	opts.Tables = doc.Tables
	opts.Functions = doc.Functions
	opts.MBTilesPaths = doc.MBTilesPaths

	return opts, nil
}

// Save writes cfg back out as YAML, to path or to stdout if path is
// "-", mirroring martin's `--save-config` flag.
func Save(cfg Config, path string) error {
	doc := yamlDoc{
		ConnectionString:         cfg.ConnectionString,
		CACertFile:               cfg.CACertFile,
		DangerAcceptInvalidCerts: cfg.DangerAcceptInvalidCerts,
		DefaultSRID:              cfg.DefaultSRID,
		KeepAlive:                cfg.KeepAlive,
		ListenAddresses:          cfg.ListenAddresses,
		PoolSize:                 cfg.PoolSize,
		WorkerProcesses:          cfg.WorkerProcesses,
		Tables:                   cfg.Tables,
		Functions:                cfg.Functions,
		MBTilesPaths:             cfg.MBTilesPaths,
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if path == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
