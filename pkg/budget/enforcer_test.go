package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/tracker"
)

func setup(t *testing.T) (tracker.Tracker, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "budget_test.db")
	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, context.Background()
}

func spend(ctx context.Context, tr tracker.Tracker, userID string, reqType models.RequestType, tokens int) {
	_ = tr.Record(ctx, models.UsageRecord{
		UserID: userID, RequestType: reqType, Model: "gpt-4",
		Tokens: tokens, Success: true, CreatedAt: time.Now().UTC(),
	})
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)
	spend(ctx, tr, "u1", models.Chatbot, 150)

	e := New([]models.BudgetPolicy{
		{UserID: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, "u1", models.Chatbot); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckExceeded(t *testing.T) {
	tr, ctx := setup(t)
	spend(ctx, tr, "u1", models.Chatbot, 1100)

	e := New([]models.BudgetPolicy{
		{UserID: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, "u1", models.Chatbot)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestTypeScopedPolicy(t *testing.T) {
	tr, ctx := setup(t)
	spend(ctx, tr, "u1", models.JobMatching, 600)
	spend(ctx, tr, "u1", models.Chatbot, 5000)

	e := New([]models.BudgetPolicy{
		{UserID: "*", RequestType: models.JobMatching, MaxTokens: 500, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, "u1", models.JobMatching); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("matching should be capped, got %v", err)
	}
	// Chatbot spend is outside the policy's type.
	if err := e.Check(ctx, "u1", models.Chatbot); err != nil {
		t.Errorf("chatbot should be unbounded, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)
	spend(ctx, tr, "u1", models.Chatbot, 150)

	e := New([]models.BudgetPolicy{
		{UserID: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	statuses, err := e.Status(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Used != 150 {
		t.Errorf("expected 150 used, got %d", statuses[0].Used)
	}
	if statuses[0].Remaining != 850 {
		t.Errorf("expected 850 remaining, got %d", statuses[0].Remaining)
	}
}

func TestSpecificUserPolicy(t *testing.T) {
	tr, ctx := setup(t)

	e := New([]models.BudgetPolicy{
		{UserID: "u1", MaxTokens: 500, Period: models.BudgetDaily},
		{UserID: "*", MaxTokens: 10000, Period: models.BudgetDaily},
	}, tr)

	// u2 matches only the wildcard.
	statuses, err := e.Status(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status for u2, got %d", len(statuses))
	}

	// u1 matches both.
	statuses, err = e.Status(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses for u1, got %d", len(statuses))
	}
}

func TestMonthlyWindowIncludesEarlierDays(t *testing.T) {
	tr, ctx := setup(t)

	// A record from yesterday counts toward a monthly cap but not a daily
	// one, unless today is the first of the month.
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	_ = tr.Record(ctx, models.UsageRecord{
		UserID: "u1", RequestType: models.Chatbot, Model: "gpt-4",
		Tokens: 800, Success: true, CreatedAt: yesterday,
	})

	e := New([]models.BudgetPolicy{
		{UserID: "u1", MaxTokens: 500, Period: models.BudgetMonthly},
	}, tr)

	if time.Now().UTC().Day() == 1 {
		t.Skip("month boundary")
	}
	if err := e.Check(ctx, "u1", models.Chatbot); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("monthly cap should include yesterday, got %v", err)
	}
}
