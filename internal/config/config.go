package config

import (
	"errors"
	"fmt"
	"time"

	"golang-news-slate/pkg/config"

	"github.com/robfig/cron/v3"
)

// Civic holds the offsets of the civic timezone the slate is planned in.
// Daylight time runs from the second Sunday of March to the first Sunday of November.
type Civic struct {
	Name                string `mapstructure:"name"`
	StandardOffsetHours int    `mapstructure:"standard_offset_hours"`
	DaylightOffsetHours int    `mapstructure:"daylight_offset_hours"`
}

// Collector holds the fallback-chain settings.
type Collector struct {
	MinArticles       int           `mapstructure:"min_articles"`
	PrimaryAttempts   int           `mapstructure:"primary_attempts"`
	PrimaryRetryDelay time.Duration `mapstructure:"primary_retry_delay"`
	PrimaryTimeout    time.Duration `mapstructure:"primary_timeout"`
	BackupTimeout     time.Duration `mapstructure:"backup_timeout"`
	CategoryTimeout   time.Duration `mapstructure:"category_timeout"`
	MaxPerQuery       int           `mapstructure:"max_per_query"`
}

// Scoring holds ranking settings.
type Scoring struct {
	QualityGate   int `mapstructure:"quality_gate"`
	PerCategory   int `mapstructure:"per_category"`
	AICacheHours  int `mapstructure:"ai_cache_hours"`
	AIConcurrency int `mapstructure:"ai_concurrency"`
}

// AI selects the engagement scorer: "none", "gemini" or "openai".
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// OpenAI holds the configuration for an OpenAI-compatible chat completions API.
type OpenAI struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// PrimarySearch is the AI search provider queried with each category description.
type PrimarySearch struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	MaxResults          int           `mapstructure:"max_results"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// BackupSearch is the keyword search provider. Provider is "newsapi" or "rss".
type BackupSearch struct {
	Provider            string        `mapstructure:"provider"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	DailyQuota          int           `mapstructure:"daily_quota"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	LookbackHours       int           `mapstructure:"lookback_hours"`
	EnrichSummaries     bool          `mapstructure:"enrich_summaries"`
}

// Platform holds the social platform API credentials.
type Platform struct {
	BaseURL             string        `mapstructure:"base_url"`
	BearerToken         string        `mapstructure:"bearer_token"`
	UserID              string        `mapstructure:"user_id"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// Publisher holds publish-time behaviour.
type Publisher struct {
	DryRun             bool          `mapstructure:"dry_run"`
	StrategicHashtag   string        `mapstructure:"strategic_hashtag"`
	DuplicateThreshold float64       `mapstructure:"duplicate_threshold"`
	RecentHistory      int           `mapstructure:"recent_history"`
	GuardTTL           time.Duration `mapstructure:"guard_ttl"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Schedule holds cron specs (UTC) for each trigger. An empty spec disables the trigger.
type Schedule struct {
	Enabled        bool          `mapstructure:"enabled"`
	Collect        string        `mapstructure:"collect"`
	Publish        string        `mapstructure:"publish"`
	MetricsInitial string        `mapstructure:"metrics_initial"`
	MetricsDay1    string        `mapstructure:"metrics_day1"`
	MetricsDay3    string        `mapstructure:"metrics_day3"`
	MetricsDay10   string        `mapstructure:"metrics_day10"`
	StageTimeout   time.Duration `mapstructure:"stage_timeout"`
}

// Config holds the full configuration of the slate service.
type Config struct {
	App           config.App      `mapstructure:"app"`
	Logger        config.Logger   `mapstructure:"logger"`
	Database      config.Database `mapstructure:"database"`
	Redis         config.Redis    `mapstructure:"redis"`
	API           config.API      `mapstructure:"api"`
	Civic         Civic           `mapstructure:"civic"`
	Collector     Collector       `mapstructure:"collector"`
	Scoring       Scoring         `mapstructure:"scoring"`
	AI            AI              `mapstructure:"ai"`
	Gemini        Gemini          `mapstructure:"gemini"`
	OpenAI        OpenAI          `mapstructure:"openai"`
	PrimarySearch PrimarySearch   `mapstructure:"primary_search"`
	BackupSearch  BackupSearch    `mapstructure:"backup_search"`
	Platform      Platform        `mapstructure:"platform"`
	Publisher     Publisher       `mapstructure:"publisher"`
	Telegram      Telegram        `mapstructure:"telegram"`
	Schedule      Schedule        `mapstructure:"schedule"`
}

// Defaults are applied before the file and environment are read.
func Defaults() map[string]any {
	return map[string]any{
		"app.name":                              "news-slate",
		"app.env":                               "development",
		"logger.level":                          "info",
		"logger.encoding":                       "json",
		"database.driver":                       "postgres",
		"database.host":                         "localhost",
		"database.port":                         5432,
		"database.ssl_mode":                     "disable",
		"database.max_idle_conns":               5,
		"database.max_open_conns":               10,
		"database.conn_max_lifetime":            "1h",
		"redis.host":                            "localhost",
		"redis.port":                            6379,
		"redis.pool_size":                       10,
		"api.port":                              8080,
		"civic.name":                            "US/Eastern",
		"civic.standard_offset_hours":           -5,
		"civic.daylight_offset_hours":           -4,
		"collector.min_articles":                5,
		"collector.primary_attempts":            3,
		"collector.primary_retry_delay":         "5m",
		"collector.primary_timeout":             "15m",
		"collector.backup_timeout":              "3m",
		"collector.category_timeout":            "25m",
		"collector.max_per_query":               20,
		"scoring.quality_gate":                  60,
		"scoring.per_category":                  3,
		"scoring.ai_cache_hours":                24,
		"scoring.ai_concurrency":                2,
		"ai.provider":                           "none",
		"gemini.model":                          "gemini-2.0-flash",
		"gemini.max_request_per_minute":         10,
		"gemini.max_token_per_minute":           200000,
		"openai.base_url":                       "https://api.openai.com/v1/chat/completions",
		"openai.model":                          "gpt-4o-mini",
		"openai.max_request_per_minute":         30,
		"openai.max_token_per_minute":           100000,
		"primary_search.base_url":               "https://api.perplexity.ai/chat/completions",
		"primary_search.model":                  "sonar",
		"primary_search.max_results":            10,
		"primary_search.max_request_per_minute": 20,
		"primary_search.request_timeout":        "90s",
		"backup_search.provider":                "newsapi",
		"backup_search.base_url":                "https://newsapi.org",
		"backup_search.daily_quota":             100,
		"backup_search.max_request_per_minute":  30,
		"backup_search.request_timeout":         "30s",
		"backup_search.lookback_hours":          48,
		"platform.base_url":                     "https://api.twitter.com",
		"platform.max_request_per_minute":       30,
		"platform.request_timeout":              "30s",
		"publisher.dry_run":                     true,
		"publisher.strategic_hashtag":           "#ResponsibleAI",
		"publisher.duplicate_threshold":         0.8,
		"publisher.recent_history":              50,
		"publisher.guard_ttl":                   "48h",
		"schedule.enabled":                      true,
		"schedule.collect":                      "0 10 * * *",
		"schedule.publish":                      "0 * * * *",
		"schedule.metrics_initial":              "30 * * * *",
		"schedule.metrics_day1":                 "0 11 * * *",
		"schedule.metrics_day3":                 "15 11 * * *",
		"schedule.metrics_day10":                "30 11 * * *",
		"schedule.stage_timeout":                "60m",

		// secrets have no default but must be known to viper for env overrides
		"database.user":                  "",
		"database.password":              "",
		"database.name":                  "",
		"redis.password":                 "",
		"redis.db":                       0,
		"redis.key_prefix":               "",
		"gemini.api_key":                 "",
		"openai.api_key":                 "",
		"primary_search.api_key":         "",
		"backup_search.api_key":          "",
		"backup_search.enrich_summaries": false,
		"platform.bearer_token":          "",
		"platform.user_id":               "",
		"telegram.bot_token":             "",
		"telegram.chat_id":               0,
	}
}

// Load loads the service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, Defaults()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CronParser accepts standard five-field specs and descriptors such as @hourly.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Collector.MinArticles < 1 {
		errs = append(errs, errors.New("collector.min_articles must be positive"))
	}
	if c.Collector.PrimaryAttempts < 1 {
		errs = append(errs, errors.New("collector.primary_attempts must be positive"))
	}
	if c.Collector.PrimaryTimeout <= 0 || c.Collector.CategoryTimeout <= 0 {
		errs = append(errs, errors.New("collector timeouts must be positive"))
	}
	if c.Collector.PrimaryTimeout >= c.Collector.CategoryTimeout {
		errs = append(errs, errors.New("collector.primary_timeout must be shorter than collector.category_timeout"))
	}
	if c.Scoring.QualityGate < 0 || c.Scoring.QualityGate > 100 {
		errs = append(errs, errors.New("scoring.quality_gate must be within 0..100"))
	}
	if c.Scoring.PerCategory != 3 {
		errs = append(errs, errors.New("scoring.per_category must be 3 to fill the slate"))
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.AI.Provider {
	case "", "none":
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("gemini.api_key is required when ai.provider is gemini"))
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("openai.api_key is required when ai.provider is openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ai.provider %q", c.AI.Provider))
	}
	switch c.BackupSearch.Provider {
	case "newsapi":
		if c.BackupSearch.APIKey == "" {
			errs = append(errs, errors.New("backup_search.api_key is required for newsapi"))
		}
	case "rss":
	default:
		errs = append(errs, fmt.Errorf("unknown backup_search.provider %q", c.BackupSearch.Provider))
	}
	if c.PrimarySearch.APIKey == "" {
		errs = append(errs, errors.New("primary_search.api_key is required"))
	}
	if !c.Publisher.DryRun && c.Platform.BearerToken == "" {
		errs = append(errs, errors.New("platform.bearer_token is required unless publisher.dry_run is set"))
	}
	if c.Publisher.DuplicateThreshold <= 0 || c.Publisher.DuplicateThreshold > 1 {
		errs = append(errs, errors.New("publisher.duplicate_threshold must be within (0, 1]"))
	}
	if c.Civic.StandardOffsetHours < -12 || c.Civic.StandardOffsetHours > 14 ||
		c.Civic.DaylightOffsetHours < -12 || c.Civic.DaylightOffsetHours > 14 {
		errs = append(errs, errors.New("civic offsets must be within -12..14"))
	}
	for name, spec := range c.Schedule.Specs() {
		if spec == "" {
			continue
		}
		if _, err := CronParser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Specs maps trigger names to their cron spec.
func (s Schedule) Specs() map[string]string {
	return map[string]string{
		"collect":         s.Collect,
		"publish":         s.Publish,
		"metrics_initial": s.MetricsInitial,
		"metrics_day1":    s.MetricsDay1,
		"metrics_day3":    s.MetricsDay3,
		"metrics_day10":   s.MetricsDay10,
	}
}
