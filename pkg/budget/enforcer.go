package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/tracker"
)

// ErrBudgetExceeded is returned when a live call would exceed a budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks ledger usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
	now      func() time.Time
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t, now: time.Now}
}

// Check returns an error wrapping ErrBudgetExceeded if any policy that
// applies to model is used up.
func (e *Enforcer) Check(ctx context.Context, model string) error {
	for _, p := range e.applicablePolicies(model) {
		used, err := e.used(ctx, p)
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if p.MaxTokens > 0 && used.TotalTokens >= p.MaxTokens {
			return fmt.Errorf("%w: %s %s limit of %d tokens reached", ErrBudgetExceeded, scope(p), p.Period, p.MaxTokens)
		}
		if p.MaxCostUSD > 0 && used.CostUSD >= p.MaxCostUSD {
			return fmt.Errorf("%w: %s %s limit of $%.2f reached", ErrBudgetExceeded, scope(p), p.Period, p.MaxCostUSD)
		}
	}
	return nil
}

// Status returns usage against every configured policy.
func (e *Enforcer) Status(ctx context.Context) ([]models.BudgetStatus, error) {
	statuses := make([]models.BudgetStatus, 0, len(e.policies))
	for _, p := range e.policies {
		used, err := e.used(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := -1
		if p.MaxTokens > 0 {
			remaining = max(p.MaxTokens-used.TotalTokens, 0)
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:     p,
			UsedTokens: used.TotalTokens,
			UsedUSD:    used.CostUSD,
			Remaining:  remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) used(ctx context.Context, p models.BudgetPolicy) (models.UsageSummary, error) {
	since := periodStart(p.Period, e.now())
	if p.Model != "" {
		return e.tracker.TotalByModel(ctx, p.Model, since)
	}
	return e.tracker.Total(ctx, since)
}

func (e *Enforcer) applicablePolicies(model string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Model == "" || p.Model == model {
			result = append(result, p)
		}
	}
	return result
}

func scope(p models.BudgetPolicy) string {
	if p.Model == "" {
		return "global"
	}
	return p.Model
}

func periodStart(period models.BudgetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
