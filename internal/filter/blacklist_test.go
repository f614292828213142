package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"NewsletterBuilder/internal/domain"
)

func TestFilterMatchesNameOrIDCaseInsensitively(t *testing.T) {
	t.Parallel()

	items := []domain.RawArticle{
		{Title: "1", SourceName: "BBC News", SourceID: "bbc-news"},
		{Title: "2", SourceName: "Reuters", SourceID: "reuters"},
		{Title: "3", SourceName: "Daily Blah", SourceID: "daily-blah"},
		{Title: "4", SourceName: "Tabloid", SourceID: ""},
	}

	kept, dropped := ParseBlacklist(" bbc NEWS , daily-blah,").Filter(items)

	assert.Equal(t, 2, dropped)
	assert.Equal(t, []string{"2", "4"}, []string{kept[0].Title, kept[1].Title})
}

func TestFilterEverythingBlacklisted(t *testing.T) {
	t.Parallel()

	items := []domain.RawArticle{
		{Title: "a", SourceName: "Spam"},
		{Title: "b", SourceID: "spam"},
	}
	kept, dropped := NewBlacklist("SPAM").Filter(items)

	assert.Empty(t, kept)
	assert.Equal(t, 2, dropped)
}

func TestEmptyBlacklistIsIdentity(t *testing.T) {
	t.Parallel()

	items := []domain.RawArticle{{Title: "a", SourceName: ""}}
	bl := NewBlacklist("", "  ")

	kept, dropped := bl.Filter(items)
	assert.Equal(t, 0, bl.Len())
	assert.Equal(t, items, kept)
	assert.Zero(t, dropped)
}

func TestEmptySourceFieldsNeverMatch(t *testing.T) {
	t.Parallel()

	bl := NewBlacklist("reuters")
	assert.False(t, bl.Blocks(domain.RawArticle{}))
	assert.True(t, bl.Blocks(domain.RawArticle{SourceID: "Reuters"}))
}
