package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

// Schema creates the run-history tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS newsletter_runs (
    id            TEXT PRIMARY KEY,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL,
    status        TEXT NOT NULL,
    output_path   TEXT NOT NULL DEFAULT '',
    blacklist     TEXT[] NOT NULL DEFAULT '{}',
    article_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS newsletter_articles (
    run_id       TEXT NOT NULL REFERENCES newsletter_runs(id) ON DELETE CASCADE,
    position     INTEGER NOT NULL,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    source_name  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    relevance    DOUBLE PRECISION NOT NULL,
    summary      TEXT NOT NULL,
    has_text     BOOLEAN NOT NULL DEFAULT FALSE,
    metadata     JSONB NOT NULL DEFAULT '{}',
    published_at TIMESTAMPTZ,
    PRIMARY KEY (run_id, position)
);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists run history into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveRun stores the run row and one row per processed article in a single
// transaction.
func (r *PostgresRepository) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := runInsert(run).ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, article := range run.Articles {
		if article == nil {
			continue
		}
		stmt, err := articleUpsert(run.ID, i, article)
		if err != nil {
			return err
		}
		query, args, err := stmt.ToSql()
		if err != nil {
			return fmt.Errorf("build article upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert article %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func runInsert(run domain.RunRecord) sq.InsertBuilder {
	blacklist := run.Blacklist
	if blacklist == nil {
		blacklist = []string{}
	}
	return psql.Insert("newsletter_runs").
		Columns("id", "started_at", "finished_at", "status", "output_path", "blacklist", "article_count").
		Values(run.ID, run.StartedAt, run.FinishedAt, run.Status, run.OutputPath, pq.StringArray(blacklist), len(run.Articles)).
		Suffix("ON CONFLICT (id) DO UPDATE SET finished_at = EXCLUDED.finished_at, status = EXCLUDED.status, output_path = EXCLUDED.output_path, article_count = EXCLUDED.article_count")
}

func articleUpsert(runID string, position int, a *domain.ProcessedArticle) (sq.InsertBuilder, error) {
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	rawMeta, err := json.Marshal(metadata)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode metadata: %w", err)
	}

	var published any
	if !a.PublishedAt.IsZero() {
		published = a.PublishedAt
	}

	return psql.Insert("newsletter_articles").
		Columns("run_id", "position", "title", "url", "source_name", "category", "relevance", "summary", "has_text", "metadata", "published_at").
		Values(runID, position, a.Title, a.URL, a.SourceName, a.Category, a.RelevanceScore, a.Summary, a.HasFullText(), string(rawMeta), published).
		Suffix("ON CONFLICT (run_id, position) DO UPDATE SET title = EXCLUDED.title, category = EXCLUDED.category, relevance = EXCLUDED.relevance, summary = EXCLUDED.summary, has_text = EXCLUDED.has_text, metadata = EXCLUDED.metadata"), nil
}
