// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(cfg DBConfig) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database")
	return db, nil
}

// EnsureSchema applies the DDL for the pool state tables. Safe to run
// multiple times.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		-- Singleton pool record; scalar accounting fields live in pool_fields.
		CREATE TABLE IF NOT EXISTS pool_info (
			id INTEGER PRIMARY KEY DEFAULT 1,
			pool_address TEXT NOT NULL,
			base_token TEXT NOT NULL,
			decimals SMALLINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_pool_check CHECK (id = 1)
		);

		-- Versioned scalar fields addressed by logical name. NUMERIC(78,0)
		-- covers the full 256-bit signed range.
		CREATE TABLE IF NOT EXISTS pool_fields (
			field TEXT PRIMARY KEY,
			value NUMERIC(78, 0) NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS active_tokens (
			token TEXT PRIMARY KEY,
			live BOOLEAN NOT NULL DEFAULT TRUE,
			inserted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_active_tokens_live ON active_tokens(live);

		CREATE TABLE IF NOT EXISTS audit_events (
			event_id SERIAL PRIMARY KEY,
			kind VARCHAR(50) NOT NULL,
			token TEXT,
			delta NUMERIC(78, 0) NOT NULL,
			resulting NUMERIC(78, 0) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_events_kind ON audit_events(kind);

		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured")
	return nil
}

// TestDBConnection tests if the database connection is healthy.
func TestDBConnection(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
