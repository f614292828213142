package stage

import (
	"sort"

	"NewsletterBuilder/internal/domain"
)

// SelectTop returns the n highest-scored articles in a new slice. Equal
// scores keep their input order, so repeated calls give the same result.
func SelectTop(items []*domain.ProcessedArticle, n int) []*domain.ProcessedArticle {
	if n <= 0 || len(items) == 0 {
		return []*domain.ProcessedArticle{}
	}

	ranked := make([]*domain.ProcessedArticle, 0, len(items))
	for _, it := range items {
		if it != nil {
			ranked = append(ranked, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
