// Package config reconciles Martin's layered configuration: hard
// defaults, a YAML file, environment variables, and CLI flags, in
// that order of increasing precedence.
package config

import (
	"fmt"
	"runtime"
)

// Default values applied by Finalize when no layer supplied one.
const (
	KeepAliveDefault        = 75
	ListenAddressesDefault  = "0.0.0.0:3000"
	PoolSizeDefault  uint32 = 20
)

// ErrNoConnectionString is returned by Finalize when no layer ever
// supplied a spatial-DB connection string and no TDB archive paths are
// configured either.
var ErrNoConnectionString = fmt.Errorf("config: connection string is required")

// TableEntry and FunctionEntry mirror core/pg's declarative entry
// shapes for the subset of fields expressible in YAML/CLI; core/pg's
// richer TableEntry (with discovered Properties) is built by
// autodiscovery at resolve time, not read from config.
type TableEntry struct {
	Schema         string  `yaml:"schema"`
	Table          string  `yaml:"table"`
	GeometryColumn string  `yaml:"geometry_column"`
	SRID           int     `yaml:"srid"`
	Extent         int     `yaml:"extent"`
	Buffer         int     `yaml:"buffer"`
	ClipGeom       *bool   `yaml:"clip_geom"`
	MinZoom        *uint8  `yaml:"minzoom"`
	MaxZoom        *uint8  `yaml:"maxzoom"`
}

type FunctionEntry struct {
	Schema string `yaml:"schema"`
	Name   string `yaml:"function"`
}

// Options is the `Option<T>`-for-every-field layer shape: every
// config source (defaults, YAML, env, CLI) produces one of these, and
// Merge folds them together left-to-right, each layer only filling in
// currently-empty fields from the one after it.
type Options struct {
	ConnectionString        *string
	CACertFile              *string
	DangerAcceptInvalidCerts *bool
	DefaultSRID             *int
	KeepAlive               *int
	ListenAddresses         *string
	PoolSize                *uint32
	WorkerProcesses         *int

	Tables    map[string]TableEntry
	Functions map[string]FunctionEntry

	// MBTilesPaths are standalone TDB archive files or directories to
	// serve alongside (or instead of) a spatial-DB, the ambient
	// counterpart to the core's PostGIS-only original scope.
	MBTilesPaths []string

	// SaveConfigPath, if set, writes the fully reconciled config back
	// out as YAML instead of starting the server; "-" means stdout.
	SaveConfigPath *string

	// unrecognized collects the top-level keys this layer didn't
	// recognize, so Finalize can warn about all of them once.
	unrecognized []string

	// nonUTF8Env collects the names of environment variables FromEnv
	// found holding invalid UTF-8, a soft warning rather than a fatal
	// configuration error.
	nonUTF8Env []string
}

// Config is the fully reconciled, validated configuration a server
// run is built from.
type Config struct {
	ConnectionString        string
	CACertFile               string
	DangerAcceptInvalidCerts bool
	DefaultSRID              int // 0 means "no fallback"
	KeepAlive                int
	ListenAddresses          string
	PoolSize                 uint32
	WorkerProcesses          int

	Tables    map[string]TableEntry
	Functions map[string]FunctionEntry

	MBTilesPaths []string

	SaveConfigPath string

	Unrecognized []string
	NonUTF8Env   []string
}

func setString(dst **string, src *string) {
	if *dst == nil && src != nil {
		*dst = src
	}
}
func setInt(dst **int, src *int) {
	if *dst == nil && src != nil {
		*dst = src
	}
}
func setUint32(dst **uint32, src *uint32) {
	if *dst == nil && src != nil {
		*dst = src
	}
}
func setBool(dst **bool, src *bool) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

// Merge sets any currently-empty field of o to the corresponding value
// from other — so calling o.Merge(other) treats o as higher precedence
// and other as the fallback layer.
func (o *Options) Merge(other Options) *Options {
	setString(&o.ConnectionString, other.ConnectionString)
	setString(&o.CACertFile, other.CACertFile)
	setBool(&o.DangerAcceptInvalidCerts, other.DangerAcceptInvalidCerts)
	setInt(&o.DefaultSRID, other.DefaultSRID)
	setInt(&o.KeepAlive, other.KeepAlive)
	setString(&o.ListenAddresses, other.ListenAddresses)
	setUint32(&o.PoolSize, other.PoolSize)
	setInt(&o.WorkerProcesses, other.WorkerProcesses)
	setString(&o.SaveConfigPath, other.SaveConfigPath)

	if o.Tables == nil {
		o.Tables = other.Tables
	}
	if o.Functions == nil {
		o.Functions = other.Functions
	}
	if len(o.MBTilesPaths) == 0 {
		o.MBTilesPaths = other.MBTilesPaths
	}

	o.unrecognized = append(o.unrecognized, other.unrecognized...)
	o.nonUTF8Env = append(o.nonUTF8Env, other.nonUTF8Env...)
	return o
}

// Finalize fills hard defaults and validates the result. It is the
// last step after every layer has been merged in.
func (o Options) Finalize() (Config, error) {
	if o.ConnectionString == nil || *o.ConnectionString == "" {
		if len(o.MBTilesPaths) == 0 {
			return Config{}, ErrNoConnectionString
		}
	}

	cfg := Config{
		DangerAcceptInvalidCerts: deref(o.DangerAcceptInvalidCerts),
		KeepAlive:                KeepAliveDefault,
		ListenAddresses:          ListenAddressesDefault,
		PoolSize:                 PoolSizeDefault,
		WorkerProcesses:          runtime.NumCPU(),
		Tables:                   o.Tables,
		Functions:                o.Functions,
		MBTilesPaths:             o.MBTilesPaths,
		Unrecognized:             o.unrecognized,
		NonUTF8Env:               o.nonUTF8Env,
	}
	if o.ConnectionString != nil {
		cfg.ConnectionString = *o.ConnectionString
	}
	if o.CACertFile != nil {
		cfg.CACertFile = *o.CACertFile
	}
	if o.DefaultSRID != nil {
		cfg.DefaultSRID = *o.DefaultSRID
	}
	if o.KeepAlive != nil {
		cfg.KeepAlive = *o.KeepAlive
	}
	if o.ListenAddresses != nil {
		cfg.ListenAddresses = *o.ListenAddresses
	}
	if o.PoolSize != nil {
		cfg.PoolSize = *o.PoolSize
	}
	if o.WorkerProcesses != nil {
		cfg.WorkerProcesses = *o.WorkerProcesses
	}
	if o.SaveConfigPath != nil {
		cfg.SaveConfigPath = *o.SaveConfigPath
	}

	return cfg, nil
}

func deref(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
