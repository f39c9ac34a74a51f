package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/tracker"
)

func setup(t *testing.T) (*tracker.SQLiteTracker, context.Context) {
	t.Helper()
	tr, err := tracker.New(filepath.Join(t.TempDir(), "budget_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, context.Background()
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: time.Now().UTC(),
	}))

	e := New([]models.BudgetPolicy{
		{MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	assert.NoError(t, e.Check(ctx, "gpt-4o"))
}

func TestCheckTokensExceeded(t *testing.T) {
	tr, ctx := setup(t)

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 500, CompletionTokens: 600, TotalTokens: 1100,
		CreatedAt: time.Now().UTC(),
	}))

	e := New([]models.BudgetPolicy{
		{MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	assert.ErrorIs(t, e.Check(ctx, "gpt-4o"), ErrBudgetExceeded)
}

func TestCheckCostExceeded(t *testing.T) {
	tr, ctx := setup(t)

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20, CostUSD: 2.5,
		CreatedAt: time.Now().UTC(),
	}))

	e := New([]models.BudgetPolicy{
		{MaxCostUSD: 2, Period: models.BudgetMonthly},
	}, tr)

	assert.ErrorIs(t, e.Check(ctx, "gpt-4o"), ErrBudgetExceeded)
}

func TestCheckLedgerErrorIsNotExceeded(t *testing.T) {
	tr, ctx := setup(t)
	require.NoError(t, tr.Close())

	e := New([]models.BudgetPolicy{
		{MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, "gpt-4o")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBudgetExceeded)
}

func TestModelPolicyOnlyAppliesToModel(t *testing.T) {
	tr, ctx := setup(t)

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 500, CompletionTokens: 600, TotalTokens: 1100,
		CreatedAt: time.Now().UTC(),
	}))

	e := New([]models.BudgetPolicy{
		{Model: "gpt-4o", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	assert.NoError(t, e.Check(ctx, "gpt-4o-mini"), "gpt-4o-mini should not be limited")
	assert.ErrorIs(t, e.Check(ctx, "gpt-4o"), ErrBudgetExceeded)
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, CostUSD: 0.01,
		CreatedAt: time.Now().UTC(),
	}))

	e := New([]models.BudgetPolicy{
		{MaxTokens: 1000, Period: models.BudgetDaily},
		{Model: "gpt-4o-mini", MaxCostUSD: 5, Period: models.BudgetMonthly},
	}, tr)

	statuses, err := e.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, 150, statuses[0].UsedTokens)
	assert.Equal(t, 850, statuses[0].Remaining)
	assert.Equal(t, 0, statuses[1].UsedTokens)
	assert.Equal(t, -1, statuses[1].Remaining, "cost-only policy has no token headroom")
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 17, 15, 4, 5, 0, time.UTC)
	assert.True(t, periodStart(models.BudgetDaily, now).Equal(time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)))
	assert.True(t, periodStart(models.BudgetMonthly, now).Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}
