package config

// FlagValues is the plain-value shape cmd/martin's cobra command
// populates from its flags. Whether a flag was given is recorded in
// Set (filled from cobra's Changed), not inferred from zero values;
// MBTilesPaths is the exception and counts as set when non-empty.
type FlagValues struct {
	ConnectionString         string
	CACertFile               string
	DangerAcceptInvalidCerts bool
	DefaultSRID              int
	KeepAlive                int
	ListenAddresses          string
	PoolSize                 uint32
	WorkerProcesses          int
	MBTilesPaths             []string
	SaveConfigPath           string
	Set                      map[string]bool // flag name -> was explicitly set
}

// FromFlags converts fv into Options, including only fields the
// caller marked as explicitly set — CLI flags are the highest
// precedence layer, so an unset flag must not shadow a YAML or env
// value with its zero default.
func FromFlags(fv FlagValues) Options {
	var opts Options

	if fv.Set["connection-string"] {
		opts.ConnectionString = &fv.ConnectionString
	}
	if fv.Set["ca-root-file"] {
		opts.CACertFile = &fv.CACertFile
	}
	if fv.Set["danger-accept-invalid-certs"] {
		opts.DangerAcceptInvalidCerts = &fv.DangerAcceptInvalidCerts
	}
	if fv.Set["default-srid"] {
		opts.DefaultSRID = &fv.DefaultSRID
	}
	if fv.Set["keep-alive"] {
		opts.KeepAlive = &fv.KeepAlive
	}
	if fv.Set["listen-addresses"] {
		opts.ListenAddresses = &fv.ListenAddresses
	}
	if fv.Set["pool-size"] {
		opts.PoolSize = &fv.PoolSize
	}
	if fv.Set["workers"] {
		opts.WorkerProcesses = &fv.WorkerProcesses
	}
	if fv.Set["save-config"] {
		opts.SaveConfigPath = &fv.SaveConfigPath
	}
	if len(fv.MBTilesPaths) > 0 {
		opts.MBTilesPaths = fv.MBTilesPaths
	}

	return opts
}
