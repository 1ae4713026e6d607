package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kru-ai/kru/pkg/models"
)

// Logger writes and queries audit entries in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		request_id    TEXT PRIMARY KEY,
		user_hash     TEXT NOT NULL,
		user_prefix   TEXT NOT NULL,
		request_type  TEXT NOT NULL,
		model         TEXT NOT NULL,
		prompt        TEXT,
		response_body TEXT,
		success       INTEGER NOT NULL DEFAULT 1,
		error_code    TEXT,
		tokens        INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_log(request_type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_prefix ON audit_log(user_prefix)`,
	} {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

// Log inserts an audit entry. Bodies over the configured size are truncated,
// not dropped; the entry itself is always kept.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	prompt := entry.Prompt
	respBody := entry.ResponseBody
	if l.cfg.MaxBodySize > 0 {
		if len(prompt) > l.cfg.MaxBodySize {
			prompt = prompt[:l.cfg.MaxBodySize]
		}
		if len(respBody) > l.cfg.MaxBodySize {
			respBody = respBody[:l.cfg.MaxBodySize]
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_log
		(request_id, user_hash, user_prefix, request_type, model,
		 prompt, response_body, success, error_code, tokens, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.UserHash, entry.UserPrefix,
		string(entry.RequestType), entry.Model,
		prompt, respBody, entry.Success, entry.ErrorCode,
		entry.Tokens, entry.LatencyMs, entry.CreatedAt,
	)
	return err
}

// Query returns audit entries matching the given options.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, user_hash, user_prefix, request_type, model,
		prompt, response_body, success, error_code, tokens, latency_ms, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.RequestType != "" {
		q += " AND request_type = ?"
		args = append(args, string(opts.RequestType))
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}
	if opts.UserPrefix != "" {
		q += " AND user_prefix = ?"
		args = append(args, opts.UserPrefix)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var reqType string
		var errCode sql.NullString
		if err := rows.Scan(
			&e.RequestID, &e.UserHash, &e.UserPrefix, &reqType, &e.Model,
			&e.Prompt, &e.ResponseBody, &e.Success, &errCode,
			&e.Tokens, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.RequestType = models.RequestType(reqType)
		e.ErrorCode = errCode.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by request type and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT request_type, date(created_at) as day, count(*) as cnt
		 FROM audit_log GROUP BY request_type, day ORDER BY day DESC, request_type`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var reqType string
		var day sql.NullString
		if err := rows.Scan(&reqType, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.RequestType = models.RequestType(reqType)
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// HashUser returns the SHA-256 hex hash and 8-char prefix for a user ID.
func HashUser(userID string) (hash, prefix string) {
	h := sha256.Sum256([]byte(userID))
	hash = hex.EncodeToString(h[:])
	if len(userID) > 8 {
		prefix = userID[:8]
	} else {
		prefix = userID
	}
	return hash, prefix
}
