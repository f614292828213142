package domain

import "time"

// SectionKind tells renderers how to lay out a section.
type SectionKind string

const (
	SectionWeather   SectionKind = "weather"
	SectionArticles  SectionKind = "articles"
	SectionEvents    SectionKind = "events"
	SectionBirthdays SectionKind = "birthdays"
	SectionTasks     SectionKind = "tasks"
	SectionNotice    SectionKind = "notice"
)

// SectionItem is implemented by every value that can appear in a section.
type SectionItem interface {
	sectionItem()
}

func (*ProcessedArticle) sectionItem() {}
func (Event) sectionItem() {}
func (WeatherInfo) sectionItem() {}
func (Birthday) sectionItem() {}
func (TodoItem) sectionItem() {}
func (Notice) sectionItem() {}

// Notice is free text placed into a section, e.g. an empty-run explanation.
type Notice struct {
	Text string
}

// NewsletterSection is an ordered, titled group of items.
type NewsletterSection struct {
	Kind  SectionKind
	Title string
	Items []SectionItem
}

// NewsletterDocument is the assembled output handed to a renderer.
type NewsletterDocument struct {
	Title       string
	GeneratedAt time.Time
	Quote       *Quote
	Sections    []NewsletterSection
}

// Articles returns every article in the document in section order.
func (d NewsletterDocument) Articles() []*ProcessedArticle {
	var out []*ProcessedArticle
	for _, section := range d.Sections {
		for _, item := range section.Items {
			if art, ok := item.(*ProcessedArticle); ok {
				out = append(out, art)
			}
		}
	}
	return out
}

// RunRecord captures the outcome of one pipeline run for history storage.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	OutputPath string
	Blacklist  []string
	Articles   []*ProcessedArticle
}
