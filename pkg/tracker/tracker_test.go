package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/typedchat/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	tr, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID:        "req-1",
		Model:            "gpt-4o",
		Fingerprint:      "abc123",
		PromptTokens:     100,
		CompletionTokens: 50,
		CachedTokens:     20,
		TotalTokens:      150,
		CostUSD:          0.00075,
		CreatedAt:        time.Now().UTC(),
	}))

	records, err := tr.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "abc123", got.Fingerprint)
	assert.Equal(t, 150, got.TotalTokens)
	assert.Equal(t, 20, got.CachedTokens)
	assert.InDelta(t, 0.00075, got.CostUSD, 1e-12)
}

func TestRecentOrderAndLimit(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, tr.Record(ctx, models.UsageRecord{
			RequestID: fmt.Sprintf("req-%d", i), Model: "gpt-4o",
			PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := tr.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "req-4", records[0].RequestID, "newest first")
	assert.Equal(t, "req-3", records[1].RequestID)
}

func TestTotal(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		require.NoError(t, tr.Record(ctx, models.UsageRecord{
			RequestID: fmt.Sprintf("req-%d", i), Model: "gpt-4o",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	// Outside the window.
	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "old", Model: "gpt-4o",
		PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000,
		CreatedAt: now.Add(-time.Hour),
	}))

	total, err := tr.Total(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 450, total.TotalTokens)
	assert.Equal(t, 3, total.RequestCount)
}

func TestTotalByModel(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "a", Model: "gpt-4o",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, CostUSD: 0.5,
		CreatedAt: now,
	}))
	require.NoError(t, tr.Record(ctx, models.UsageRecord{
		RequestID: "b", Model: "gpt-4o-mini",
		PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300, CostUSD: 0.1,
		CreatedAt: now,
	}))

	total, err := tr.TotalByModel(ctx, "gpt-4o", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", total.Model)
	assert.Equal(t, 1, total.RequestCount)
	assert.Equal(t, 150, total.TotalTokens)
	assert.InDelta(t, 0.5, total.CostUSD, 1e-12)
}

func TestTotalEmpty(t *testing.T) {
	tr := newTestTracker(t)
	total, err := tr.Total(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, total.RequestCount)
	assert.Zero(t, total.TotalTokens)
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []models.UsageRecord{
		{RequestID: "a", Model: "gpt-4o", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, CostUSD: 0.5},
		{RequestID: "b", Model: "gpt-4o", PromptTokens: 100, CompletionTokens: 50, CachedTokens: 40, TotalTokens: 150, CostUSD: 0.25},
		{RequestID: "c", Model: "gpt-4o-mini", PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300},
	} {
		rec.CreatedAt = now
		require.NoError(t, tr.Record(ctx, rec))
	}

	summaries, err := tr.Summary(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	s := summaries[0]
	assert.Equal(t, "gpt-4o", s.Model)
	assert.Equal(t, 2, s.RequestCount)
	assert.Equal(t, 300, s.TotalTokens)
	assert.Equal(t, 40, s.TotalCached)
	assert.InDelta(t, 0.75, s.CostUSD, 1e-12)

	// Nothing recorded in the future.
	summaries, err = tr.Summary(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestConcurrentRecord(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Record(ctx, models.UsageRecord{
				RequestID: fmt.Sprintf("req-%d", i), Model: "gpt-4o",
				PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2,
			}))
		}()
	}
	wg.Wait()

	total, err := tr.Total(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 16, total.RequestCount)
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Opening twice must not fail.
	tr1, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, tr1.Close())

	tr2, err := New(dbPath)
	require.NoError(t, err, "second New")
	require.NoError(t, tr2.Close())
}
