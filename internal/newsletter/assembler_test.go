package newsletter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterBuilder/internal/domain"
)

func scored(title, category string, score float64) *domain.ProcessedArticle {
	p := domain.NewProcessedArticle(domain.RawArticle{Title: title}, "s")
	p.Category = category
	p.SetRelevance(score)
	return p
}

func sectionTitles(doc domain.NewsletterDocument) []string {
	out := make([]string, len(doc.Sections))
	for i, s := range doc.Sections {
		out[i] = s.Title
	}
	return out
}

func TestAssembleSectionOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	quote := &domain.Quote{Text: "Stay curious.", Author: "Someone"}
	doc := Assemble(Input{
		Title:       "Daily",
		GeneratedAt: now,
		Categories:  []string{"Tech", "Science", "Economy"},
		Articles: []*domain.ProcessedArticle{
			scored("u1", domain.UncategorizedCategory, 3),
			scored("s1", "Science", 2),
			scored("x1", "Legacy", 4),
			scored("t1", "Tech", 4),
			scored("t2", "Tech", 8),
			scored("t3", "Tech", 4),
		},
		Events:    []domain.Event{{Title: "Meetup"}},
		Weather:   []domain.WeatherInfo{{Location: "Zurich"}},
		Birthdays: []domain.Birthday{{Name: "Ada"}},
		Tasks:     []domain.TodoItem{{Content: "Water plants"}},
		Quote:     quote,
	})

	assert.Equal(t, "Daily", doc.Title)
	assert.Equal(t, now, doc.GeneratedAt)
	assert.Same(t, quote, doc.Quote)
	assert.Equal(t,
		[]string{"Weather", "Tech", "Science", "Legacy", "More news", "Events", "Upcoming birthdays", "Tasks"},
		sectionTitles(doc))

	tech := doc.Sections[1].Items
	require.Len(t, tech, 3)
	assert.Equal(t, "t2", tech[0].(*domain.ProcessedArticle).Title)
	assert.Equal(t, "t1", tech[1].(*domain.ProcessedArticle).Title)
	assert.Equal(t, "t3", tech[2].(*domain.ProcessedArticle).Title)

	assert.Len(t, doc.Articles(), 6)
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	t.Parallel()

	doc := Assemble(Input{Articles: []*domain.ProcessedArticle{scored("only", "Tech", 1)}, Categories: []string{"Tech", "Science"}})
	assert.Equal(t, []string{"Tech"}, sectionTitles(doc))
	assert.Nil(t, doc.Quote)
}

func TestEmptyDocument(t *testing.T) {
	t.Parallel()

	doc := Empty("Daily", time.Time{}, "no data found")
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, domain.SectionNotice, doc.Sections[0].Kind)
	assert.Equal(t, domain.Notice{Text: "no data found"}, doc.Sections[0].Items[0])
}
