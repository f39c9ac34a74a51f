package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/typedchat/pkg/models"
)

// Tracker records and queries token usage of live API calls.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// Summary returns usage aggregated by model since a given time.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
	// Total returns usage summed over all models since a given time.
	Total(ctx context.Context, since time.Time) (models.UsageSummary, error)
	// TotalByModel returns usage of one model since a given time.
	TotalByModel(ctx context.Context, model string, since time.Time) (models.UsageSummary, error)
	// Recent returns the newest records, newest first.
	Recent(ctx context.Context, limit int) ([]models.UsageRecord, error)
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
	request_id TEXT NOT NULL,
	model TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	cached_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_time ON usage_records(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_model_time ON usage_records(model, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	// Serialize writers; concurrent ChatAll workers share one ledger.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record. Timestamps are stored in UTC; a zero
// CreatedAt is stamped with the current time.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (request_id, model, fingerprint, prompt_tokens, completion_tokens, cached_tokens, total_tokens, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Model, rec.Fingerprint, rec.PromptTokens, rec.CompletionTokens,
		rec.CachedTokens, rec.TotalTokens, rec.CostUSD, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Summary returns aggregated usage grouped by model.
func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT model, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(cached_tokens), SUM(total_tokens), SUM(cost_usd)
		 FROM usage_records WHERE created_at >= ? GROUP BY model ORDER BY model`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Model, &s.RequestCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalCached, &s.TotalTokens, &s.CostUSD); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Total returns usage summed over every model. Model is left empty.
func (t *SQLiteTracker) Total(ctx context.Context, since time.Time) (models.UsageSummary, error) {
	var s models.UsageSummary
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(cached_tokens), 0), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM usage_records WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&s.RequestCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalCached, &s.TotalTokens, &s.CostUSD)
	if err != nil {
		return models.UsageSummary{}, fmt.Errorf("total usage: %w", err)
	}
	return s, nil
}

// TotalByModel returns usage of one model since a given time.
func (t *SQLiteTracker) TotalByModel(ctx context.Context, model string, since time.Time) (models.UsageSummary, error) {
	s := models.UsageSummary{Model: model}
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(cached_tokens), 0), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM usage_records WHERE model = ? AND created_at >= ?`,
		model, since.UTC(),
	).Scan(&s.RequestCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalCached, &s.TotalTokens, &s.CostUSD)
	if err != nil {
		return models.UsageSummary{}, fmt.Errorf("total usage by model: %w", err)
	}
	return s, nil
}

// Recent returns up to limit records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, request_id, model, fingerprint, prompt_tokens, completion_tokens, cached_tokens, total_tokens, cost_usd, created_at
		 FROM usage_records ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Model, &r.Fingerprint, &r.PromptTokens, &r.CompletionTokens,
			&r.CachedTokens, &r.TotalTokens, &r.CostUSD, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
