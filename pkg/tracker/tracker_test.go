package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kru-ai/kru/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func record(userID string, reqType models.RequestType, tokens int, at time.Time) models.UsageRecord {
	return models.UsageRecord{
		UserID:      userID,
		RequestType: reqType,
		Model:       "gpt-4",
		Tokens:      tokens,
		Cost:        float64(tokens) / 1000 * 0.03,
		DurationMs:  120,
		Success:     true,
		CreatedAt:   at,
	}
}

func TestRecordAndQuery(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("u1", models.Chatbot, 150, now)); err != nil {
		t.Fatal(err)
	}

	records, err := tr.QueryByUser(ctx, "u1", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Tokens != 150 {
		t.Errorf("expected 150 tokens, got %d", records[0].Tokens)
	}
	if records[0].RequestType != models.Chatbot {
		t.Errorf("request type = %s", records[0].RequestType)
	}
}

func TestTokensByUser(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		_ = tr.Record(ctx, record("u1", models.Translation, 150, now.Add(time.Duration(i)*time.Second)))
	}
	_ = tr.Record(ctx, record("u2", models.Translation, 999, now))

	total, err := tr.TokensByUser(ctx, "u1", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}
}

func TestTokensByUserAndType(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("u1", models.Chatbot, 100, now))
	_ = tr.Record(ctx, record("u1", models.JobMatching, 300, now))

	total, err := tr.TokensByUserAndType(ctx, "u1", models.JobMatching, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 300 {
		t.Errorf("expected 300, got %d", total)
	}
}

func TestTokensByUserSinceCutoff(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("u1", models.Chatbot, 100, now.Add(-2*time.Hour)))
	_ = tr.Record(ctx, record("u1", models.Chatbot, 200, now))

	total, err := tr.TokensByUser(ctx, "u1", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 200 {
		t.Errorf("expected 200 inside the window, got %d", total)
	}
}

func TestStats(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("u1", models.Chatbot, 100, now))
	_ = tr.Record(ctx, record("u1", models.JobMatching, 300, now))

	hit := record("u2", models.Chatbot, 0, now)
	hit.CacheHit = true
	hit.Cost = 0
	_ = tr.Record(ctx, hit)

	failed := record("u2", models.Translation, 0, now)
	failed.Success = false
	_ = tr.Record(ctx, failed)

	stats, err := tr.Stats(ctx, "", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("totalRequests = %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 3 || stats.FailedRequests != 1 {
		t.Errorf("success = %d, failed = %d", stats.SuccessfulRequests, stats.FailedRequests)
	}
	if stats.CacheHits != 1 {
		t.Errorf("cacheHits = %d", stats.CacheHits)
	}
	if stats.TotalTokens != 400 {
		t.Errorf("totalTokens = %d", stats.TotalTokens)
	}
	if len(stats.ByType) != 3 {
		t.Errorf("byType entries = %d", len(stats.ByType))
	}

	// Per-user filter narrows the aggregates.
	stats, err = tr.Stats(ctx, "u1", now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRequests != 2 {
		t.Errorf("filtered totalRequests = %d", stats.TotalRequests)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	tr1, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = tr1.Close()

	tr2, err := New(dbPath)
	if err != nil {
		t.Fatal("second New() failed:", err)
	}
	_ = tr2.Close()
}
