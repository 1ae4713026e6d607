package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kru-ai/kru/pkg/models"
)

// Tracker records and queries per-user AI usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// QueryByUser returns usage records for a user since a given time.
	QueryByUser(ctx context.Context, userID string, since time.Time) ([]models.UsageRecord, error)
	// TokensByUser returns total tokens consumed by a user since a given time.
	// Cache hits carry zero tokens and do not count.
	TokensByUser(ctx context.Context, userID string, since time.Time) (int64, error)
	// TokensByUserAndType narrows TokensByUser to one request type.
	TokensByUserAndType(ctx context.Context, userID string, reqType models.RequestType, since time.Time) (int64, error)
	// Stats aggregates usage since a given time, optionally for one user.
	Stats(ctx context.Context, userID string, since time.Time) (models.UsageStats, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	request_type TEXT NOT NULL,
	model TEXT NOT NULL,
	tokens INTEGER NOT NULL,
	cost REAL NOT NULL,
	duration_ms INTEGER NOT NULL,
	cache_hit INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_user_time ON usage_records(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_type_time ON usage_records(request_type, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (user_id, request_type, model, tokens, cost, duration_ms, cache_hit, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, string(rec.RequestType), rec.Model, rec.Tokens, rec.Cost,
		rec.DurationMs, rec.CacheHit, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// QueryByUser returns usage records for a user since a given time.
func (t *SQLiteTracker) QueryByUser(ctx context.Context, userID string, since time.Time) ([]models.UsageRecord, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, user_id, request_type, model, tokens, cost, duration_ms, cache_hit, success, created_at
		 FROM usage_records WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var reqType string
		if err := rows.Scan(&r.ID, &r.UserID, &reqType, &r.Model, &r.Tokens, &r.Cost,
			&r.DurationMs, &r.CacheHit, &r.Success, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.RequestType = models.RequestType(reqType)
		records = append(records, r)
	}
	return records, rows.Err()
}

// TokensByUser returns total tokens consumed by a user since a given time.
func (t *SQLiteTracker) TokensByUser(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM usage_records WHERE user_id = ? AND created_at >= ?`,
		userID, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// TokensByUserAndType narrows TokensByUser to one request type.
func (t *SQLiteTracker) TokensByUserAndType(ctx context.Context, userID string, reqType models.RequestType, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM usage_records WHERE user_id = ? AND request_type = ? AND created_at >= ?`,
		userID, string(reqType), since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage by type: %w", err)
	}
	return total, nil
}

// Stats aggregates usage since a given time. An empty userID covers all users.
func (t *SQLiteTracker) Stats(ctx context.Context, userID string, since time.Time) (models.UsageStats, error) {
	var stats models.UsageStats

	where := `WHERE created_at >= ?`
	args := []any{since}
	if userID != "" {
		where += ` AND user_id = ?`
		args = append(args, userID)
	}

	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(success), 0),
		        COALESCE(SUM(cache_hit), 0),
		        COALESCE(SUM(tokens), 0),
		        COALESCE(SUM(cost), 0),
		        COALESCE(AVG(duration_ms), 0)
		 FROM usage_records `+where, args...,
	).Scan(&stats.TotalRequests, &stats.SuccessfulRequests, &stats.CacheHits,
		&stats.TotalTokens, &stats.TotalCost, &stats.AvgLatencyMs)
	if err != nil {
		return models.UsageStats{}, fmt.Errorf("usage stats: %w", err)
	}
	stats.FailedRequests = stats.TotalRequests - stats.SuccessfulRequests

	rows, err := t.db.QueryContext(ctx,
		`SELECT request_type, COUNT(*), COALESCE(SUM(tokens), 0), COALESCE(SUM(cost), 0),
		        COALESCE(AVG(duration_ms), 0), COALESCE(SUM(cache_hit), 0)
		 FROM usage_records `+where+` GROUP BY request_type ORDER BY request_type`, args...,
	)
	if err != nil {
		return models.UsageStats{}, fmt.Errorf("usage stats by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.TypeSummary
		var reqType string
		if err := rows.Scan(&reqType, &s.RequestCount, &s.TotalTokens, &s.TotalCost,
			&s.AvgLatencyMs, &s.CacheHits); err != nil {
			return models.UsageStats{}, fmt.Errorf("scan type summary: %w", err)
		}
		s.RequestType = models.RequestType(reqType)
		stats.ByType = append(stats.ByType, s)
	}
	return stats, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
