package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnString renders the settings as a postgres URL.
func (c *DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}, "application_name": {"payment-orchestrator"}}.Encode(),
	}
	return u.String()
}

// PgxConfig creates a pgxpool.Config with the pool limits from the DatabaseConfig.
func (c *DatabaseConfig) PgxConfig(ctx context.Context) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.ConnString())
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConns > 0 {
		cfg.MaxConns = int32(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		cfg.MinConns = int32(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		cfg.MaxConnIdleTime = c.ConnMaxIdleTime
	}
	cfg.HealthCheckPeriod = 30 * time.Second

	return cfg, nil
}
