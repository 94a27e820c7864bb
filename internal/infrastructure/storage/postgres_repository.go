package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"NewsPress/internal/domain"
	"NewsPress/internal/ports"
)

// PostgresHistory records per-article run outcomes for cross-run dedup and
// audit. Optional: a nil *sql.DB turns every operation into a no-op.
type PostgresHistory struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunHistory = (*PostgresHistory)(nil)

// NewPostgresHistory wires a sql.DB implementation.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AlreadyProcessed returns a map with article URLs that already exist in
// storage with a successful outcome.
func (h *PostgresHistory) AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if h.db == nil || len(urls) == 0 {
		return result, nil
	}

	query, args, err := h.builder.
		Select("url").
		From("run_articles").
		Where(sq.Eq{"url": urls}).
		Where(sq.Eq{"succeeded": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// RecordOutcome upserts one article outcome for the run.
func (h *PostgresHistory) RecordOutcome(ctx context.Context, runID string, result domain.ArticleResult) error {
	if h.db == nil {
		return nil
	}

	succeeded := result.Processed != nil
	title := result.Original.Title
	imageURL := ""
	if succeeded {
		title = result.Processed.Title
		if result.Processed.Image != nil {
			imageURL = result.Processed.Image.URL
		}
	}

	query, args, err := h.builder.
		Insert("run_articles").
		Columns("run_id", "url", "source_id", "title", "succeeded", "image_url").
		Values(runID, result.Original.URL, result.Original.SourceID, title, succeeded, imageURL).
		Suffix(`ON CONFLICT (url) DO UPDATE
                SET run_id = EXCLUDED.run_id,
                    title = EXCLUDED.title,
                    succeeded = EXCLUDED.succeeded,
                    image_url = EXCLUDED.image_url,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}
