package pg

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool builds a connection pool for cfg, applying the configured
// pool size and optional TLS settings (a custom CA root, or disabling
// certificate verification entirely for local/self-signed setups).
func NewPool(ctx context.Context, cfg Config, dangerAcceptInvalidCerts bool) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("pg: parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	if dangerAcceptInvalidCerts {
		poolCfg.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	} else if cfg.TLSCertPath != "" {
		pem, err := os.ReadFile(cfg.TLSCertPath)
		if err != nil {
			return nil, fmt.Errorf("pg: read CA root file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("pg: no certificates found in %s", cfg.TLSCertPath)
		}
		poolCfg.ConnConfig.TLSConfig = &tls.Config{RootCAs: pool}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	return pool, nil
}
