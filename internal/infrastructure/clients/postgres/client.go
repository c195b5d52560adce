package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/pkg/config"
	"github.com/zatekoja/patientcare/backend/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db *sql.DB
}

// NewClient creates a new PostgreSQL client, retrying the first ping with exponential backoff
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	retryConfig := retry.DefaultConfig("postgres")
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
	}

	err = retry.Do(ctx, retryConfig, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing connection pool (used by tests with sqlmock)
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a new transaction
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates any missing tables and indexes in one transaction
func (c *Client) ApplySchema(ctx context.Context) error {
	tx, err := c.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return tx.Commit()
}
