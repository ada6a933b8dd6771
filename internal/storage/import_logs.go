package storage

import (
	"context"
	"fmt"
	"time"
)

// Import statuses.
const (
	ImportRunning = "running"
	ImportSuccess = "success"
	ImportError   = "error"
)

// ImportLog records the outcome of one history import run.
type ImportLog struct {
	ID               int64     `json:"id"`
	UserID           int       `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	SessionsReceived int       `json:"sessions_received"`
	LogsInserted     int       `json:"logs_inserted"`
	SetsInserted     int       `json:"sets_inserted"`
	WarmupsSkipped   int       `json:"warmups_skipped"`
	DurationMs       *int      `json:"duration_ms"`
	ErrorMessage     *string   `json:"error_message"`
}

// InsertImportLog creates an import log entry and returns its id.
func (db *DB) InsertImportLog(ctx context.Context, l ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, sessions_received, logs_inserted,
		 sets_inserted, warmups_skipped, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		l.UserID, l.Source, l.Status, l.SessionsReceived, l.LogsInserted,
		l.SetsInserted, l.WarmupsSkipped, l.DurationMs, l.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog moves an entry from "running" to its final state.
func (db *DB) UpdateImportLog(ctx context.Context, id int64, l ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 status = $2, sessions_received = $3, logs_inserted = $4,
		 sets_inserted = $5, warmups_skipped = $6, duration_ms = $7, error_message = $8
		 WHERE id = $1`,
		id, l.Status, l.SessionsReceived, l.LogsInserted,
		l.SetsInserted, l.WarmupsSkipped, l.DurationMs, l.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import runs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, sessions_received, logs_inserted,
		 sets_inserted, warmups_skipped, duration_ms, error_message
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status,
			&l.SessionsReceived, &l.LogsInserted, &l.SetsInserted, &l.WarmupsSkipped,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
