/*
Package db owns the PostgreSQL connection pool and the embedded schema
migrations. Migrations run once at startup, before the pool is handed to the
repositories.
*/
package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

const connectTimeout = 15 * time.Second

// NewPool connects to PostgreSQL, verifies the connection, and brings the
// schema up to date before returning the pool.
func NewPool(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// migrate applies pending goose migrations through a temporary database/sql
// handle; goose does not speak pgx natively.
func migrate(pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	goose.SetBaseFS(schemaFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err == nil {
		logx.Info("Database schema is up to date.", "version", version)
	}

	return nil
}
