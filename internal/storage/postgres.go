package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// maxStoredOutput caps the output column; the runner already caps output but
// the limit is configurable.
const maxStoredOutput = 65535

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id           UUID PRIMARY KEY,
	filename     TEXT NOT NULL,
	extension    TEXT NOT NULL,
	action       TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	command      TEXT NOT NULL DEFAULT '',
	exit_code    INTEGER NOT NULL,
	output       TEXT NOT NULL DEFAULT '',
	truncated    BOOLEAN NOT NULL DEFAULT FALSE,
	status       TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS executions_created_at_idx ON executions (created_at DESC);`

// DB wraps a PostgreSQL connection pool for execution history.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return &DB{pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks database connectivity.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}

// Migrate creates the history table if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// LogExecution inserts an execution record.
func (db *DB) LogExecution(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO executions (id, filename, extension, action, location, command,
			exit_code, output, truncated, status, duration_ms, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := db.pool.Exec(ctx, query,
		exec.ID, textForDB(exec.Filename), textForDB(exec.Extension), exec.Action,
		textForDB(exec.Location), textForDB(exec.Command), exec.ExitCode,
		truncateForDB(textForDB(exec.Output), maxStoredOutput),
		exec.Truncated, exec.Status, exec.DurationMS,
		exec.CreatedAt, exec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// GetExecution retrieves a single execution by ID.
func (db *DB) GetExecution(ctx context.Context, id string) (*Execution, error) {
	// Execution ids are UUIDs; anything else cannot match a row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	query := `
		SELECT id, filename, extension, action, location, command,
			exit_code, output, truncated, status, duration_ms, created_at, completed_at
		FROM executions WHERE id = $1`

	var exec Execution
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&exec.ID, &exec.Filename, &exec.Extension, &exec.Action, &exec.Location,
		&exec.Command, &exec.ExitCode, &exec.Output, &exec.Truncated,
		&exec.Status, &exec.DurationMS, &exec.CreatedAt, &exec.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying execution %s: %w", id, err)
	}
	return &exec, nil
}

// ListExecutions queries executions with optional filters, newest first.
// Output is not loaded.
func (db *DB) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]Execution, error) {
	query := `
		SELECT id, filename, extension, action, location, command,
			exit_code, truncated, status, duration_ms, created_at, completed_at
		FROM executions
		WHERE ($1 = '' OR extension = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.pool.Query(ctx, query,
		filter.Extension, filter.Status, normalizeLimit(filter.Limit), max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	results := []Execution{}
	for rows.Next() {
		var exec Execution
		if err := rows.Scan(
			&exec.ID, &exec.Filename, &exec.Extension, &exec.Action, &exec.Location,
			&exec.Command, &exec.ExitCode, &exec.Truncated,
			&exec.Status, &exec.DurationMS, &exec.CreatedAt, &exec.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		results = append(results, exec)
	}

	return results, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

// textForDB makes s storable in a TEXT column: invalid UTF-8 becomes U+FFFD
// and NUL bytes, which PostgreSQL rejects, are dropped.
func textForDB(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.ReplaceAll(s, "\x00", "")
}

// truncateForDB cuts s to at most maxLen bytes without splitting a rune.
func truncateForDB(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
