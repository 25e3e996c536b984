package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smart-dealer/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema holds the tables read by the profile store and the deal source.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id             TEXT PRIMARY KEY,
		weights             JSONB NOT NULL,
		preferred_platforms JSONB NOT NULL DEFAULT '{}'::jsonb,
		budget_max          DOUBLE PRECISION,
		default_location    TEXT NOT NULL DEFAULT '',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS deals (
		id               TEXT PRIMARY KEY,
		description      TEXT NOT NULL,
		code             TEXT NOT NULL DEFAULT '',
		deal_type        TEXT NOT NULL,
		category         TEXT NOT NULL,
		platform         TEXT NOT NULL DEFAULT '*',
		discount_percent DOUBLE PRECISION,
		discount_amount  DOUBLE PRECISION,
		min_order        DOUBLE PRECISION,
		max_discount     DOUBLE PRECISION,
		valid_from       TIMESTAMPTZ,
		valid_until      TIMESTAMPTZ,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS deals_category_active_idx ON deals (category) WHERE is_active`,
}

// Migrate creates the tables if they do not exist yet.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
