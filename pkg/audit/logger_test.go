package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kru-ai/kru/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 30,
		MaxBodySize:   1024,
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.AuditEntry {
	hash, prefix := HashUser("user-42")
	return models.AuditEntry{
		RequestID:    "req-001",
		UserHash:     hash,
		UserPrefix:   prefix,
		RequestType:  models.Chatbot,
		Model:        "gpt-4",
		Prompt:       "hello",
		ResponseBody: `{"content":"hi"}`,
		Success:      true,
		Tokens:       30,
		LatencyMs:    150,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestType: models.Chatbot})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].RequestID != "req-001" {
		t.Errorf("expected req-001, got %s", entries[0].RequestID)
	}
	if entries[0].UserHash == "user-42" {
		t.Error("user ID stored in clear")
	}
}

func TestQueryByRequestID(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1, got %d", len(entries))
	}
}

func TestQueryByUserPrefix(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	other := sampleEntry()
	other.RequestID = "req-002"
	other.UserHash, other.UserPrefix = HashUser("someone-else")
	_ = l.Log(ctx, other)

	_, prefix := HashUser("user-42")
	entries, err := l.Query(ctx, models.AuditQueryOpts{UserPrefix: prefix})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1, got %d", len(entries))
	}
}

func TestBodyTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Prompt = strings.Repeat("x", 100)
	if err := l.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries[0].Prompt) != 16 {
		t.Errorf("expected truncated prompt len 16, got %d", len(entries[0].Prompt))
	}
}

func TestFailureEntry(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	entry := sampleEntry()
	entry.Success = false
	entry.ErrorCode = "AI_SERVICE_ERROR"
	_ = l.Log(ctx, entry)

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].Success {
		t.Error("success flag not persisted")
	}
	if entries[0].ErrorCode != "AI_SERVICE_ERROR" {
		t.Errorf("error code = %q", entries[0].ErrorCode)
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0 // everything is old
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.CreatedAt = time.Now().AddDate(0, 0, -1)
	_ = l.Log(ctx, entry)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	e2 := sampleEntry()
	e2.RequestID = "req-002"
	_ = l.Log(ctx, e2)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) == 0 {
		t.Fatal("expected stats")
	}
	if stats[0].Count != 2 {
		t.Errorf("expected count 2, got %d", stats[0].Count)
	}
}

func TestHashUser(t *testing.T) {
	hash, prefix := HashUser("user-abc123xyz")
	if len(hash) != 64 {
		t.Errorf("expected 64-char hash, got %d", len(hash))
	}
	if prefix != "user-abc" {
		t.Errorf("expected prefix user-abc, got %s", prefix)
	}

	shortHash, shortPrefix := HashUser("u1")
	if shortPrefix != "u1" {
		t.Errorf("short prefix = %s", shortPrefix)
	}
	if shortHash == hash {
		t.Error("distinct users hashed identically")
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleEntry()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
}
