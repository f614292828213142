package render

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/microcosm-cc/bluemonday"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

const a4Stylesheet = "@page { size: A4; margin: 2cm; }\n" +
	"body { font-family: serif; }\n" +
	"h1 { font-size: 1.4em; margin-bottom: 0.2em; }\n" +
	"p { margin-top: 0; margin-bottom: 0.5em; }\n"

// EPUBRenderer writes the newsletter as an EPUB book, one chapter per
// section and articlesPerPage articles per article chapter.
type EPUBRenderer struct {
	dir             string
	articlesPerPage int
	useA4CSS        bool
	policy          *bluemonday.Policy
	logger          *slog.Logger
}

var _ ports.Renderer = (*EPUBRenderer)(nil)

// NewEPUBRenderer builds a renderer writing into dir; articlesPerPage below 1
// is raised to 1.
func NewEPUBRenderer(dir string, cfg config.EPUBConfig, logger *slog.Logger) *EPUBRenderer {
	perPage := cfg.ArticlesPerPage
	if perPage < 1 {
		perPage = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EPUBRenderer{
		dir:             dir,
		articlesPerPage: perPage,
		useA4CSS:        cfg.UseA4CSS,
		policy:          bluemonday.UGCPolicy(),
		logger:          logger.With("component", "epub"),
	}
}

// Format reports the file extension produced.
func (r *EPUBRenderer) Format() string { return FormatEPUB }

// Chapter is one rendered EPUB section.
type Chapter struct {
	Title string
	Body  string
}

// Render writes the book and returns its path.
func (r *EPUBRenderer) Render(ctx context.Context, doc domain.NewsletterDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	title := orDefault(doc.Title, "Newsletter")
	book, err := epub.NewEpub(title)
	if err != nil {
		return "", fmt.Errorf("new epub: %w", err)
	}
	book.SetAuthor("Newsletter Builder")
	book.SetLang("en")
	book.SetDescription(fmt.Sprintf("Generated %s", doc.GeneratedAt.Format("2006-01-02 15:04 MST")))

	cssPath := ""
	if r.useA4CSS {
		var cleanup func()
		cssPath, cleanup, err = r.addStylesheet(book)
		if err != nil {
			return "", err
		}
		// go-epub reads the stylesheet source during Write.
		defer cleanup()
	}

	for i, ch := range r.Chapters(doc) {
		name := fmt.Sprintf("chap_%03d.xhtml", i+1)
		if _, err := book.AddSection(ch.Body, ch.Title, name, cssPath); err != nil {
			return "", fmt.Errorf("add chapter %q: %w", ch.Title, err)
		}
	}

	path := OutputPath(r.dir, doc.GeneratedAt, FormatEPUB)
	if err := ensureDir(path); err != nil {
		return "", err
	}
	if err := book.Write(path); err != nil {
		return "", fmt.Errorf("write epub: %w", err)
	}
	r.logger.Debug("epub written", "path", path)
	return path, nil
}

// addStylesheet stages the A4 CSS in a temp file, since go-epub only takes a
// path or URL. The file must outlive book.Write; the caller runs cleanup.
func (r *EPUBRenderer) addStylesheet(book *epub.Epub) (string, func(), error) {
	tmp, err := os.CreateTemp("", "newsletter-a4-*.css")
	if err != nil {
		return "", nil, fmt.Errorf("create stylesheet: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := tmp.WriteString(a4Stylesheet); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write stylesheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close stylesheet: %w", err)
	}

	path, err := book.AddCSS(tmp.Name(), "a4.css")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("add stylesheet: %w", err)
	}
	return path, cleanup, nil
}

// Chapters converts the document into sanitized chapter bodies. The quote
// follows the weather chapter, or opens the book when there is no weather.
func (r *EPUBRenderer) Chapters(doc domain.NewsletterDocument) []Chapter {
	var chapters []Chapter
	quoteDone := false
	addQuote := func() {
		quoteDone = true
		if q := doc.Quote; q != nil && q.Text != "" {
			body := "<h1>Quote of the day</h1>" + paragraph(q.Text)
			if q.Author != "" {
				body += paragraph("- " + q.Author)
			}
			chapters = append(chapters, r.chapter("Quote of the day", body))
		}
	}

	for _, section := range doc.Sections {
		if !quoteDone && section.Kind != domain.SectionWeather {
			addQuote()
		}
		switch section.Kind {
		case domain.SectionArticles:
			chapters = append(chapters, r.articleChapters(section)...)
		default:
			var body strings.Builder
			body.WriteString("<h1>" + html.EscapeString(section.Title) + "</h1>")
			if section.Kind == domain.SectionTasks {
				body.WriteString("<ul>")
			}
			for _, item := range section.Items {
				body.WriteString(itemHTML(item, doc))
			}
			if section.Kind == domain.SectionTasks {
				body.WriteString("</ul>")
			}
			chapters = append(chapters, r.chapter(section.Title, body.String()))
		}
	}
	if !quoteDone {
		addQuote()
	}
	return chapters
}

func (r *EPUBRenderer) articleChapters(section domain.NewsletterSection) []Chapter {
	var articles []*domain.ProcessedArticle
	for _, item := range section.Items {
		if a, ok := item.(*domain.ProcessedArticle); ok {
			articles = append(articles, a)
		}
	}

	var chapters []Chapter
	for start := 0; start < len(articles); start += r.articlesPerPage {
		end := min(start+r.articlesPerPage, len(articles))
		batch := articles[start:end]

		var body strings.Builder
		if start == 0 {
			body.WriteString("<h2>" + html.EscapeString(section.Title) + "</h2>")
		}
		for _, a := range batch {
			body.WriteString(articleHTML(a))
		}
		chapters = append(chapters, r.chapter(batch[0].Title, body.String()))
	}
	return chapters
}

func (r *EPUBRenderer) chapter(title, body string) Chapter {
	return Chapter{Title: title, Body: r.policy.Sanitize(body)}
}

func articleHTML(a *domain.ProcessedArticle) string {
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(orDefault(a.Title, "untitled")) + "</h1>")
	meta := fmt.Sprintf("%s | %s | %s", orDefault(a.SourceName, "unknown"), a.Category, formatWhen(a.PublishedAt))
	b.WriteString("<p><em>" + html.EscapeString(meta) + "</em></p>")
	b.WriteString(paragraph(a.Summary))
	if a.HasFullText() {
		b.WriteString("<div>")
		for _, para := range strings.Split(a.ArticleText, "\n") {
			if strings.TrimSpace(para) != "" {
				b.WriteString(paragraph(para))
			}
		}
		b.WriteString("</div>")
	}
	if a.URL != "" {
		b.WriteString(`<p><a href="` + html.EscapeString(a.URL) + `">Original article</a></p>`)
	}
	return b.String()
}

func itemHTML(item domain.SectionItem, doc domain.NewsletterDocument) string {
	switch v := item.(type) {
	case domain.WeatherInfo:
		line := v.ForecastSnippet
		if line == "" {
			line = fmt.Sprintf("%s: %.1f°C, %s", v.Date, v.TemperatureC, v.Condition)
		}
		return paragraph(line)
	case domain.Event:
		when := formatWhen(v.Start)
		if !v.End.IsZero() {
			when += " - " + formatWhen(v.End)
		}
		out := "<p><b>" + html.EscapeString(v.Title) + "</b></p>" + paragraph(when)
		if v.Location != "" {
			out += paragraph(v.Location)
		}
		return out
	case domain.Birthday:
		return paragraph(fmt.Sprintf("%s (%02d.%02d.)%s", v.Name, v.Day, int(v.Month), untilLabel(v, doc)))
	case domain.TodoItem:
		return "<li>" + html.EscapeString(v.Content) + "</li>"
	case domain.Notice:
		return paragraph(v.Text)
	case *domain.ProcessedArticle:
		return articleHTML(v)
	}
	return ""
}

func paragraph(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>"
}
