package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/tracker"
)

// ErrBudgetExceeded is returned when a request exceeds the budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t}
}

// Check returns ErrBudgetExceeded if the user has exhausted any applicable
// policy. It is called before dispatch, so a user at the cap is cut off on
// the next request rather than mid-flight.
func (e *Enforcer) Check(ctx context.Context, userID string, reqType models.RequestType) error {
	for _, p := range e.applicablePolicies(userID, reqType) {
		since := periodStart(p.Period)
		var used int64
		var err error
		if p.RequestType != "" {
			used, err = e.tracker.TokensByUserAndType(ctx, userID, p.RequestType, since)
		} else {
			used, err = e.tracker.TokensByUser(ctx, userID, since)
		}
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxTokens {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns the budget status for a user across all applicable policies.
func (e *Enforcer) Status(ctx context.Context, userID string) ([]models.BudgetStatus, error) {
	policies := e.policiesForUser(userID)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		since := periodStart(p.Period)
		var used int64
		var err error
		if p.RequestType != "" {
			used, err = e.tracker.TokensByUserAndType(ctx, userID, p.RequestType, since)
		} else {
			used, err = e.tracker.TokensByUser(ctx, userID, since)
		}
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

// policiesForUser returns all policies matching a user, ignoring the task
// type filter.
func (e *Enforcer) policiesForUser(userID string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.UserID == "*" || p.UserID == userID {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) applicablePolicies(userID string, reqType models.RequestType) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.UserID == "*" || p.UserID == userID {
			if p.RequestType == "" || p.RequestType == reqType {
				result = append(result, p)
			}
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod) time.Time {
	now := time.Now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
