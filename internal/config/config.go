package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone        = "UTC"
	defaultTopArticleCount = 3
	defaultEventThreshold  = 5.0
	defaultBirthdayCount   = 3

	configPathEnv = "NEWSLETTER_CONFIG"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Newsletter   NewsletterConfig   `yaml:"newsletter"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	LLM          LLMConfig          `yaml:"llm"`
	ChatGPT      ChatGPTConfig      `yaml:"chatgpt"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	NewsAPI      NewsAPIConfig      `yaml:"newsapi"`
	Sources      []SourceConfig     `yaml:"sources"`
	Events       EventsConfig       `yaml:"events"`
	Weather      WeatherConfig      `yaml:"weather"`
	Quotes       QuotesConfig       `yaml:"quotes"`
	Todoist      TodoistConfig      `yaml:"todoist"`
	Birthdays    BirthdaysConfig    `yaml:"birthdays"`
	Google       GoogleConfig       `yaml:"google"`
	Distribution DistributionConfig `yaml:"distribution"`
}

// LoggingConfig selects level, format and an optional rotated log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// NewsletterConfig carries the options consumed by the pipeline core.
type NewsletterConfig struct {
	Title           string        `yaml:"title"`
	Blacklist       []string      `yaml:"blacklist"`
	Categories      []string      `yaml:"categories"`
	TopArticleCount int           `yaml:"topArticleCount"`
	OutputFormat    string        `yaml:"outputFormat"`
	OutputDir       string        `yaml:"outputDir"`
	EventThreshold  float64       `yaml:"eventThreshold"`
	BirthdayCount   int           `yaml:"birthdayCount"`
	RenderOnEmpty   bool          `yaml:"renderOnEmpty"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
	EPUB            EPUBConfig    `yaml:"epub"`
}

// EPUBConfig tunes the EPUB renderer.
type EPUBConfig struct {
	ArticlesPerPage int  `yaml:"articlesPerPage"`
	UseA4CSS        bool `yaml:"useA4Css"`
}

// SchedulerConfig defines how often the pipeline runs in schedule mode.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// DatabaseConfig describes the Postgres run-history store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the LLM response cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MetricsConfig points at an optional Prometheus pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// LLMConfig holds settings shared by all language-model clients.
type LLMConfig struct {
	StageProvider     string        `yaml:"stageProvider"`
	WriterProvider    string        `yaml:"writerProvider"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible API.
type ChatGPTConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"apiKey"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Temperature  float32 `yaml:"temperature"`
}

// GeminiConfig defines how to contact Google Gemini.
type GeminiConfig struct {
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	Temperature float32 `yaml:"temperature"`
}

// NewsAPIConfig holds the NewsAPI credential shared by all newsapi sources.
type NewsAPIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// SourceConfig describes a single article source and the kind that serves it.
type SourceConfig struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	URL        string            `yaml:"url"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds concrete listing endpoints (e.g., arXiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// EventsConfig groups all event providers.
type EventsConfig struct {
	Eventbrite EventbriteConfig     `yaml:"eventbrite"`
	SerpAPI    SerpAPIConfig        `yaml:"serpapi"`
	Calendar   GoogleCalendarConfig `yaml:"calendar"`
	WebSearch  WebSearchConfig      `yaml:"webSearch"`
}

// EventbriteConfig configures the Eventbrite search.
type EventbriteConfig struct {
	Token      string `yaml:"token"`
	Query      string `yaml:"query"`
	Categories string `yaml:"categories"`
	Location   string `yaml:"location"`
	Within     string `yaml:"within"`
}

// SerpAPIConfig configures Google event search via SerpAPI.
type SerpAPIConfig struct {
	APIKey   string `yaml:"apiKey"`
	Query    string `yaml:"query"`
	Location string `yaml:"location"`
}

// GoogleCalendarConfig selects the calendar to read.
type GoogleCalendarConfig struct {
	CalendarID string `yaml:"calendarId"`
	MaxResults int    `yaml:"maxResults"`
}

// WebSearchConfig drives LLM-backed event discovery.
type WebSearchConfig struct {
	Enabled bool     `yaml:"enabled"`
	Query   string   `yaml:"query"`
	URLs    []string `yaml:"urls"`
}

// WeatherConfig configures the OpenWeatherMap forecast.
type WeatherConfig struct {
	APIKey string `yaml:"apiKey"`
	City   string `yaml:"city"`
	Units  string `yaml:"units"`
}

// QuotesConfig configures the quote-of-the-day provider.
type QuotesConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// TodoistConfig configures the task provider.
type TodoistConfig struct {
	Token     string `yaml:"token"`
	ProjectID string `yaml:"projectId"`
}

// BirthdaysConfig points at the birthday spreadsheet.
type BirthdaysConfig struct {
	SheetID string `yaml:"sheetId"`
	Range   string `yaml:"range"`
}

// GoogleConfig holds the service-account credentials used by Google APIs.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentialsFile"`
}

// DistributionConfig encapsulates outbound channels for the artifact.
type DistributionConfig struct {
	Drive    DriveConfig    `yaml:"drive"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DriveConfig enables Google Drive uploads.
type DriveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FolderID string `yaml:"folderId"`
}

// TelegramConfig wires all data required to send documents.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			parsed, err := Parse(raw, cfg)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = parsed
			}
		}
	}

	cfg.applyEnvOverrides(os.Getenv)
	cfg.normalize()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes YAML on top of base; keys absent from the document keep base values.
func Parse(raw []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	setString("LOG_FILE", &c.Logging.File)

	if v := getenv("NEWSLETTER_SOURCE_BLACKLIST"); v != "" {
		c.Newsletter.Blacklist = SplitList(v)
	}
	if v := getenv("NEWSLETTER_CATEGORIES"); v != "" {
		c.Newsletter.Categories = SplitList(v)
	}
	if v := getenv("NEWSLETTER_TOP_ARTICLE_COUNT"); v != "" {
		c.Newsletter.TopArticleCount = parseTopCount(v)
	}
	if v := getenv("NEWSLETTER_EVENT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Newsletter.EventThreshold = f
		} else {
			log.Printf("config: invalid NEWSLETTER_EVENT_THRESHOLD %q, keeping %.1f", v, c.Newsletter.EventThreshold)
		}
	}
	if v := getenv("NEWSLETTER_BIRTHDAY_COUNT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Newsletter.BirthdayCount = n
		}
	}
	if v := getenv("NEWSLETTER_OUTPUT_FORMAT"); v != "" {
		c.Newsletter.OutputFormat = strings.ToLower(strings.TrimSpace(v))
	}
	setString("NEWSLETTER_OUTPUT_DIR", &c.Newsletter.OutputDir)
	if v := getenv("NEWSLETTER_RENDER_EMPTY"); v != "" {
		c.Newsletter.RenderOnEmpty = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := getenv("EPUB_ARTICLES_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Newsletter.EPUB.ArticlesPerPage = n
		}
	}
	if v := getenv("EPUB_USE_A4_CSS"); v != "" {
		c.Newsletter.EPUB.UseA4CSS = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	setString("DATABASE_DSN", &c.Database.DSN)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)

	setString("OPENAI_API_KEY", &c.ChatGPT.APIKey)
	setString("CHATGPT_API_KEY", &c.ChatGPT.APIKey)
	setString("CHATGPT_MODEL", &c.ChatGPT.Model)
	setString("GOOGLE_API_KEY", &c.Gemini.APIKey)
	setString("GEMINI_DEFAULT_MODEL", &c.Gemini.Model)

	setString("NEWSAPI_API_KEY", &c.NewsAPI.APIKey)
	setString("OPENWEATHER_API_KEY", &c.Weather.APIKey)
	setString("TODOIST_API_TOKEN", &c.Todoist.Token)
	setString("EVENTBRITE_OAUTH_TOKEN", &c.Events.Eventbrite.Token)
	setString("SERPAPI_API_KEY", &c.Events.SerpAPI.APIKey)

	setString("GOOGLE_CREDENTIALS_FILE", &c.Google.CredentialsFile)
	setString("GOOGLE_CALENDAR_ID", &c.Events.Calendar.CalendarID)
	setString("BIRTHDAY_SHEET_ID", &c.Birthdays.SheetID)
	setString("GOOGLE_DRIVE_FOLDER_ID", &c.Distribution.Drive.FolderID)

	setString("TELEGRAM_BOT_TOKEN", &c.Distribution.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Distribution.Telegram.ChatID)
}

func (c *Config) normalize() {
	n := &c.Newsletter
	if n.TopArticleCount < 1 {
		n.TopArticleCount = 1
	}
	if n.BirthdayCount < 1 {
		n.BirthdayCount = defaultBirthdayCount
	}
	if n.EPUB.ArticlesPerPage < 1 {
		n.EPUB.ArticlesPerPage = 1
	}
	if n.OutputFormat != "epub" {
		n.OutputFormat = "txt"
	}
	if n.FetchTimeout <= 0 {
		n.FetchTimeout = 20 * time.Second
	}
	n.Blacklist = cleanList(n.Blacklist)
	n.Categories = cleanList(n.Categories)
	if len(n.Categories) == 0 {
		log.Printf("config: no categories configured, using fallback")
		n.Categories = []string{"General"}
	}
	if len(c.Sources) == 0 {
		c.Sources = defaultConfig().Sources
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// SplitList parses a comma-separated option into trimmed, non-empty entries.
func SplitList(raw string) []string {
	return cleanList(strings.Split(raw, ","))
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseTopCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid NEWSLETTER_TOP_ARTICLE_COUNT %q, using %d", raw, defaultTopArticleCount)
		return defaultTopArticleCount
	}
	if n < 1 {
		return 1
	}
	return n
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text", MaxSizeMB: 10, MaxBackups: 3},
		Newsletter: NewsletterConfig{
			Title:           "Your personal newsletter",
			Categories:      []string{"IT & AI", "World & Politics", "Economy", "Local", "Culture & Inspiration", "Around the World"},
			TopArticleCount: defaultTopArticleCount,
			OutputFormat:    "txt",
			OutputDir:       "tmp",
			EventThreshold:  defaultEventThreshold,
			BirthdayCount:   defaultBirthdayCount,
			FetchTimeout:    20 * time.Second,
			EPUB:            EPUBConfig{ArticlesPerPage: 1},
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Redis:     RedisConfig{TTL: 24 * time.Hour},
		Metrics:   MetricsConfig{Job: "newsletter"},
		LLM: LLMConfig{
			StageProvider:     "gemini",
			WriterProvider:    "chatgpt",
			RequestsPerSecond: 2,
			Timeout:           20 * time.Second,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a newspaper editor writing for a personal newsletter.",
			Temperature:  0.2,
		},
		Gemini:  GeminiConfig{Model: "gemini-1.5-flash-latest", Temperature: 0.3},
		NewsAPI: NewsAPIConfig{BaseURL: "https://newsapi.org/v2/"},
		Sources: []SourceConfig{
			{
				Name: "AI & Tech News",
				Kind: "newsapi",
				Options: map[string]string{
					"endpoint": "everything",
					"query":    "artificial intelligence OR technology",
					"language": "en",
					"daysAgo":  "1",
					"pageSize": "3",
				},
			},
			{
				Name: "Swiss Tech Headlines",
				Kind: "newsapi",
				Options: map[string]string{
					"endpoint": "top-headlines",
					"country":  "ch",
					"category": "technology",
					"pageSize": "2",
				},
			},
			{
				Name: "International Innovation",
				Kind: "newsapi",
				Options: map[string]string{
					"endpoint": "everything",
					"query":    "global innovation OR science breakthrough",
					"language": "en",
					"daysAgo":  "1",
					"pageSize": "3",
				},
			},
		},
		Events: EventsConfig{
			Eventbrite: EventbriteConfig{Location: "Zurich", Within: "10km"},
			SerpAPI:    SerpAPIConfig{Query: "events in Zurich"},
			Calendar:   GoogleCalendarConfig{CalendarID: "primary", MaxResults: 3},
			WebSearch:  WebSearchConfig{Query: "events in Zurich"},
		},
		Weather:   WeatherConfig{City: "Zurich", Units: "metric"},
		Quotes:    QuotesConfig{Enabled: true, URL: "https://zenquotes.io/api/today"},
		Birthdays: BirthdaysConfig{Range: "A2:B"},
	}
}
