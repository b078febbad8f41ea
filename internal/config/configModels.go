package config

import "time"

type Config struct {
	Env            string         `yaml:"env" env:"ENV" env-default:"local"`
	HttpServer     HttpServerConfig `yaml:"httpServer"`
	DBConfig       DBConfig       `yaml:"db" env-required:"true"`
	ScraperConfig  ScraperConfig  `yaml:"scraper"`
	TaggingConfig  TaggingConfig  `yaml:"tagging"`
	NotifierConfig NotifierConfig `yaml:"notifier"`
	EnrichConfig   EnrichConfig   `yaml:"enrich"`
	Sources        []SourceConfig `yaml:"sources"`
}

type HttpServerConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost"`
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
	Secret  string        `yaml:"secret" env:"HTTP_SECRET" env-default:""`
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

type ScraperConfig struct {
	JobBufferSize int           `yaml:"jobBufferSize" env:"SCRAPER_JOB_BUFFER_SIZE" env-default:"10"`
	WorkersCount  int           `yaml:"workersCount" env:"SCRAPER_WORKERS_COUNT" env-default:"3"`
	Timeout       time.Duration `yaml:"timeout" env:"SCRAPER_TIMEOUT" env-default:"10m"`
	// DetailWorkers bounds concurrent detail-page fetches within one source run.
	DetailWorkers int           `yaml:"detailWorkers" env-default:"4"`
	// DetailDelay is the polite per-fetch delay applied by each detail worker.
	DetailDelay   time.Duration `yaml:"detailDelay" env-default:"250ms"`
	RetryAttempts int           `yaml:"retryAttempts" env-default:"3"`
	RetryInitial  time.Duration `yaml:"retryInitial" env-default:"500ms"`
	RetryMax      time.Duration `yaml:"retryMax" env-default:"8s"`
}

// SeasonalWindowConfig is an inclusive date window, "2006-01-02" bounds.
type SeasonalWindowConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type TagRuleConfig struct {
	Pattern string   `yaml:"pattern"`
	Tags    []string `yaml:"tags"`
}

// TaggingConfig externalizes the tag vocabulary: the per-venue scripts
// this service replaces each hardcoded their own copy of these tables.
type TaggingConfig struct {
	MaxTags    int                             `yaml:"maxTags" env-default:"2"`
	Allowed    []string                        `yaml:"allowed"`
	Priority   []string                        `yaml:"priority"`
	Seasonal   map[string]SeasonalWindowConfig `yaml:"seasonal"`
	Rules      []TagRuleConfig                 `yaml:"rules"`
	Organizers map[string][]string             `yaml:"organizers"`
}

type NotifierConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	ApiToken string `yaml:"apitoken" env:"TGBOT_APITOKEN" env-default:""`
	ChatID   int64  `yaml:"chatId" env:"TGBOT_CHAT_ID" env-default:"0"`
}

type EnrichConfig struct {
	Enabled       bool          `yaml:"enabled" env-default:"false"`
	ModelName     string        `yaml:"modelName" env:"AI_MODEL_NAME" env-default:""`
	ApiToken      string        `yaml:"apitoken" env:"AI_API_TOKEN" env-default:""`
	Timeout       time.Duration `yaml:"timeout" env-default:"10m"`
	JobBufferSize int           `yaml:"jobBufferSize" env-default:"10"`
	WorkersCount  int           `yaml:"workersCount" env-default:"1"`
}

type VenueConfig struct {
	Name      string   `yaml:"name"`
	Slug      string   `yaml:"slug"`
	Address   string   `yaml:"address"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
}

// SelectorsConfig holds the CSS selectors for the generic HTML listing
// adapter. Only Card, Title and Link are required; the rest degrade to
// empty fields on the record.
type SelectorsConfig struct {
	Card        string `yaml:"card"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Date        string `yaml:"date"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
	// DetailDescription, when set, triggers a secondary fetch of each
	// record's detail page to fill the description.
	DetailDescription string `yaml:"detailDescription"`
}

// SourceConfig describes one venue/source to ingest.
type SourceConfig struct {
	Name    string      `yaml:"name"`
	Adapter string      `yaml:"adapter"` // jsonfeed | jsonld | listing | ics
	URL     string      `yaml:"url"`
	Venue   VenueConfig `yaml:"venue"`
	// Timezone is the venue's civil timezone, e.g. "America/New_York".
	Timezone string `yaml:"timezone" env-default:"America/New_York"`
	// TagPolicy selects taggings reconciliation: "additive" or "replace".
	TagPolicy string `yaml:"tagPolicy" env-default:"additive"`
	// SlugCollisions selects slug disambiguation for title-derived slugs:
	// "" (none), "date", or "hash".
	SlugCollisions string `yaml:"slugCollisions"`
	// Schedule is a cron expression; empty means manual trigger only.
	Schedule  string          `yaml:"schedule"`
	Selectors SelectorsConfig `yaml:"selectors"`
}
