package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterBuilder/internal/domain"
)

func TestRunInsertSQL(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	run := domain.RunRecord{
		ID:         "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Status:     "completed",
		OutputPath: "tmp/newsletter-2025-03-10.txt",
		Articles:   []*domain.ProcessedArticle{{Title: "A"}, {Title: "B"}},
	}

	query, args, err := runInsert(run).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO newsletter_runs (id,started_at,finished_at,status,output_path,blacklist,article_count) VALUES ($1,$2,$3,$4,$5,$6,$7)"), query)
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE")
	require.Len(t, args, 7)
	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, pq.StringArray{}, args[5])
	assert.Equal(t, 2, args[6])
}

func TestArticleUpsertSQL(t *testing.T) {
	t.Parallel()

	article := &domain.ProcessedArticle{
		Title:          "Chips",
		URL:            "https://example.com",
		Summary:        "fast",
		Category:       "IT & AI",
		RelevanceScore: 8.5,
		Metadata:       map[string]string{"assigned_category": "IT & AI"},
		ArticleText:    "body",
	}

	stmt, err := articleUpsert("run-1", 3, article)
	require.NoError(t, err)
	query, args, err := stmt.ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO newsletter_articles")
	assert.Contains(t, query, "$11")
	assert.Contains(t, query, "ON CONFLICT (run_id, position) DO UPDATE")
	require.Len(t, args, 11)
	assert.Equal(t, 3, args[1])
	assert.Equal(t, 8.5, args[6])
	assert.Equal(t, true, args[8])
	assert.JSONEq(t, `{"assigned_category":"IT & AI"}`, args[9].(string))
	assert.Nil(t, args[10])
}

func TestRepositoryWithoutDatabaseIsNoop(t *testing.T) {
	t.Parallel()

	repo := NewPostgresRepository(nil)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, repo.SaveRun(context.Background(), domain.RunRecord{ID: "x"}))
}
