package filter

import (
	"strings"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
)

// Blacklist drops articles whose source name or source id is listed.
// Matching is case-insensitive on the trimmed value.
type Blacklist struct {
	entries map[string]struct{}
}

// NewBlacklist builds a blacklist from raw entries; blanks are ignored.
func NewBlacklist(entries ...string) Blacklist {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if key := normalize(e); key != "" {
			set[key] = struct{}{}
		}
	}
	return Blacklist{entries: set}
}

// ParseBlacklist reads the comma-separated form used by the environment.
func ParseBlacklist(raw string) Blacklist {
	return NewBlacklist(config.SplitList(raw)...)
}

// Len reports how many distinct entries are blocked.
func (b Blacklist) Len() int { return len(b.entries) }

// Entries returns the normalized entries, unordered.
func (b Blacklist) Entries() []string {
	out := make([]string, 0, len(b.entries))
	for e := range b.entries {
		out = append(out, e)
	}
	return out
}

// Blocks reports whether the article comes from a blacklisted source.
func (b Blacklist) Blocks(item domain.RawArticle) bool {
	if len(b.entries) == 0 {
		return false
	}
	if _, ok := b.entries[normalize(item.SourceName)]; ok && item.SourceName != "" {
		return true
	}
	if _, ok := b.entries[normalize(item.SourceID)]; ok && item.SourceID != "" {
		return true
	}
	return false
}

// Filter keeps non-blacklisted items in their original order.
func (b Blacklist) Filter(items []domain.RawArticle) ([]domain.RawArticle, int) {
	if len(b.entries) == 0 {
		return items, 0
	}

	kept := make([]domain.RawArticle, 0, len(items))
	for _, item := range items {
		if b.Blocks(item) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
