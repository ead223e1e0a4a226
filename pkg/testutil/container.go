// Package testutil provides testing utilities for the tracking backend:
// a testcontainers PostgreSQL instance, a sqlmock wrapper, and schema helpers.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "pharmtrace_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "pharmtrace_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateTrackingSchema creates the tracking tables used by integration tests.
// It mirrors the production schema: two append-only event tables, the
// reference tables, and the optional materialized projection.
func (c *PostgresContainer) CreateTrackingSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			material_code TEXT NOT NULL,
			material_name TEXT NOT NULL DEFAULT '',
			unit_of_measure TEXT NOT NULL DEFAULT '',
			net_quantity NUMERIC(14,3) NOT NULL DEFAULT 0,
			containers INT NOT NULL DEFAULT 0,
			container_index INT,
			batch_number TEXT NOT NULL DEFAULT '',
			expiry_date TIMESTAMPTZ,
			retest_date TIMESTAMPTZ,
			vendor_code TEXT NOT NULL DEFAULT '',
			vendor_batch TEXT NOT NULL DEFAULT '',
			manufacturer TEXT NOT NULL DEFAULT '',
			lr_number TEXT NOT NULL DEFAULT '',
			invoice_number TEXT NOT NULL DEFAULT '',
			vehicle_number TEXT NOT NULL DEFAULT '',
			issued_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS locations (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			area TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			sub_plant TEXT NOT NULL DEFAULT '',
			plant TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true
		);

		CREATE TABLE IF NOT EXISTS movement_events (
			id UUID PRIMARY KEY,
			label_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			from_location TEXT,
			to_location TEXT,
			quantity NUMERIC(14,3),
			containers INT,
			reason TEXT NOT NULL,
			note TEXT,
			actor_id TEXT NOT NULL,
			actor_name TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT movement_event_type_valid CHECK
				(event_type IN ('PUTAWAY','TRANSFER','CONSUME','EMPTY_OUT'))
		);
		CREATE INDEX IF NOT EXISTS idx_movement_events_label
			ON movement_events (label_id, occurred_at);
		CREATE INDEX IF NOT EXISTS idx_movement_events_location
			ON movement_events (to_location, from_location);

		CREATE TABLE IF NOT EXISTS quality_events (
			id UUID PRIMARY KEY,
			label_id TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_quality_events_label
			ON quality_events (label_id, occurred_at);

		CREATE TABLE IF NOT EXISTS label_location_state (
			label_id TEXT PRIMARY KEY,
			location_code TEXT,
			status TEXT NOT NULL,
			quantity NUMERIC(14,3) NOT NULL DEFAULT 0,
			containers INT NOT NULL DEFAULT 0,
			placed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tracking schema: %w", err)
	}
	return nil
}
