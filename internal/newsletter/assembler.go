// Package newsletter assembles the ordered document handed to renderers.
package newsletter

import (
	"sort"
	"strings"
	"time"

	"NewsletterBuilder/internal/domain"
)

// Input gathers everything that may end up in a document.
type Input struct {
	Title       string
	GeneratedAt time.Time
	Categories  []string
	Articles    []*domain.ProcessedArticle
	Events      []domain.Event
	Weather     []domain.WeatherInfo
	Birthdays   []domain.Birthday
	Tasks       []domain.TodoItem
	Quote       *domain.Quote
}

// Assemble lays out sections in a fixed order: weather, one section per
// article category, events, birthdays, tasks. Empty sections are omitted.
func Assemble(in Input) domain.NewsletterDocument {
	doc := domain.NewsletterDocument{
		Title:       in.Title,
		GeneratedAt: in.GeneratedAt,
		Quote:       in.Quote,
	}

	if len(in.Weather) > 0 {
		items := make([]domain.SectionItem, 0, len(in.Weather))
		for _, w := range in.Weather {
			items = append(items, w)
		}
		doc.Sections = append(doc.Sections, domain.NewsletterSection{Kind: domain.SectionWeather, Title: "Weather", Items: items})
	}

	doc.Sections = append(doc.Sections, articleSections(in.Articles, in.Categories)...)

	if len(in.Events) > 0 {
		items := make([]domain.SectionItem, 0, len(in.Events))
		for _, e := range in.Events {
			items = append(items, e)
		}
		doc.Sections = append(doc.Sections, domain.NewsletterSection{Kind: domain.SectionEvents, Title: "Events", Items: items})
	}

	if len(in.Birthdays) > 0 {
		items := make([]domain.SectionItem, 0, len(in.Birthdays))
		for _, b := range in.Birthdays {
			items = append(items, b)
		}
		doc.Sections = append(doc.Sections, domain.NewsletterSection{Kind: domain.SectionBirthdays, Title: "Upcoming birthdays", Items: items})
	}

	if len(in.Tasks) > 0 {
		items := make([]domain.SectionItem, 0, len(in.Tasks))
		for _, t := range in.Tasks {
			items = append(items, t)
		}
		doc.Sections = append(doc.Sections, domain.NewsletterSection{Kind: domain.SectionTasks, Title: "Tasks", Items: items})
	}

	return doc
}

// Empty builds the document rendered when a run exits early.
func Empty(title string, at time.Time, reason string) domain.NewsletterDocument {
	return domain.NewsletterDocument{
		Title:       title,
		GeneratedAt: at,
		Sections: []domain.NewsletterSection{{
			Kind:  domain.SectionNotice,
			Title: "No news today",
			Items: []domain.SectionItem{domain.Notice{Text: reason}},
		}},
	}
}

// articleSections groups articles by category: allow-list order first, then
// other categories in order of first appearance, uncategorized last.
func articleSections(articles []*domain.ProcessedArticle, allowed []string) []domain.NewsletterSection {
	groups := map[string][]*domain.ProcessedArticle{}
	var seen []string
	for _, a := range articles {
		if a == nil {
			continue
		}
		cat := a.Category
		if strings.TrimSpace(cat) == "" {
			cat = domain.UncategorizedCategory
		}
		if _, ok := groups[cat]; !ok {
			seen = append(seen, cat)
		}
		groups[cat] = append(groups[cat], a)
	}

	order := make([]string, 0, len(groups))
	placed := map[string]bool{}
	for _, c := range allowed {
		if _, ok := groups[c]; ok && !placed[c] {
			order = append(order, c)
			placed[c] = true
		}
	}
	for _, c := range seen {
		if !placed[c] && c != domain.UncategorizedCategory {
			order = append(order, c)
			placed[c] = true
		}
	}
	if _, ok := groups[domain.UncategorizedCategory]; ok && !placed[domain.UncategorizedCategory] {
		order = append(order, domain.UncategorizedCategory)
	}

	sections := make([]domain.NewsletterSection, 0, len(order))
	for _, c := range order {
		list := groups[c]
		sort.SliceStable(list, func(i, j int) bool { return list[i].RelevanceScore > list[j].RelevanceScore })

		items := make([]domain.SectionItem, len(list))
		for i, a := range list {
			items[i] = a
		}
		title := c
		if c == domain.UncategorizedCategory {
			title = "More news"
		}
		sections = append(sections, domain.NewsletterSection{Kind: domain.SectionArticles, Title: title, Items: items})
	}
	return sections
}
