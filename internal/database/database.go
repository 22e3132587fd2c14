// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config describes the single process-wide connection.
type Config struct {
	URI      string
	Name     string
	Attempts int
	// InitialInterval is the first retry delay; it doubles up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DSN combines the connection URI with the database name. The name replaces
// any database already present in the URI path.
func DSN(uri, name string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse database uri: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported database uri scheme %q", u.Scheme)
	}
	if name != "" {
		u.Path = "/" + name
	}
	return u.String(), nil
}

// Connect opens the pool and pings it, retrying with exponential backoff up to
// cfg.Attempts times. When every attempt fails it returns the last error and
// leaves no pool open; callers are expected to exit.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	dsn, err := DSN(cfg.URI, cfg.Name)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		bo.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		bo.MaxInterval = cfg.MaxInterval
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return struct{}{}, db.PingContext(pingCtx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("database not reachable, retrying",
				"database", cfg.Name, "retry_in", next.String(), "err", err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s (%s): %w", cfg.Name, redact(dsn), err)
	}

	slog.Info(fmt.Sprintf("Connected to %s database successfully", cfg.Name))
	return db, nil
}

func redact(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
