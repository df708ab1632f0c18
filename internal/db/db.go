// Package db provides the PostgreSQL delivery journal. The journal records
// monitor runs and every successful delivery; it is never read back to seed
// deduplication state.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/autoleech/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the journal tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordRunStarted inserts a run record.
func (db *DB) RecordRunStarted(ctx context.Context, run types.RunRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO monitor_runs (id, upload_chat, command_chat, started_at)
		 VALUES ($1, $2, $3, $4)`,
		run.ID, run.UploadChat.String(), run.CommandChat.String(), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordRunStopped marks a run as stopped with reason.
func (db *DB) RecordRunStopped(ctx context.Context, runID uuid.UUID, reason string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE monitor_runs SET stopped_at = NOW(), stop_reason = $1 WHERE id = $2`,
		reason, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run stop: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordDelivery inserts a delivery record.
func (db *DB) RecordDelivery(ctx context.Context, d types.Delivery) error {
	deliveredAt := d.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = time.Now().UTC()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO deliveries (run_id, topic_url, link, title, size, filename, chat, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.RunID, d.TopicURL, d.Link, d.Title, d.Size, d.Filename, d.Chat.String(), deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery %s: %w", d.Link, err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*types.RunRecord, error) {
	var run types.RunRecord
	var uploadChat, commandChat string
	err := db.pool.QueryRow(ctx,
		`SELECT id, upload_chat, command_chat, started_at, stopped_at, stop_reason
		 FROM monitor_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &uploadChat, &commandChat, &run.StartedAt, &run.StoppedAt, &run.StopReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.UploadChat = types.ChatRef(uploadChat)
	run.CommandChat = types.ChatRef(commandChat)
	return &run, nil
}

// ListRuns retrieves the most recent runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, upload_chat, command_chat, started_at, stopped_at, stop_reason
		 FROM monitor_runs ORDER BY started_at DESC LIMIT $1`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]types.RunRecord, 0)
	for rows.Next() {
		var run types.RunRecord
		var uploadChat, commandChat string
		if err := rows.Scan(&run.ID, &uploadChat, &commandChat, &run.StartedAt, &run.StoppedAt, &run.StopReason); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.UploadChat = types.ChatRef(uploadChat)
		run.CommandChat = types.ChatRef(commandChat)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListDeliveries retrieves deliveries, newest first, with optional filters.
func (db *DB) ListDeliveries(ctx context.Context, filters DeliveryFilters) ([]types.Delivery, error) {
	query, args := filters.query()
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := make([]types.Delivery, 0)
	for rows.Next() {
		var d types.Delivery
		var chat string
		if err := rows.Scan(&d.ID, &d.RunID, &d.TopicURL, &d.Link, &d.Title, &d.Size, &d.Filename, &chat, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Chat = types.ChatRef(chat)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
