package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"newsletter-agent/delivery"
	"newsletter-agent/ranker"
)

const envPrefix = "NEWSLETTER"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig          `mapstructure:"server"`
	OpenAI     OpenAIConfig          `mapstructure:"openai"`
	Fetch      FetchConfig           `mapstructure:"fetch"`
	Newsletter NewsletterConfig      `mapstructure:"newsletter"`
	Images     ImagesConfig          `mapstructure:"images"`
	Schedule   ScheduleConfig        `mapstructure:"schedule"`
	Delivery   []delivery.SinkConfig `mapstructure:"delivery"`
	Log        LogConfig             `mapstructure:"log"`
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OpenAIConfig configures the language-model and image APIs.
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	ImageModel string        `mapstructure:"image_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// FetchConfig configures page retrieval. A zero timeout or concurrency means unbounded.
type FetchConfig struct {
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	Concurrency        int           `mapstructure:"concurrency"`
	UserAgent          string        `mapstructure:"user_agent"`
}

// NewsletterConfig configures ranking and composition.
type NewsletterConfig struct {
	MaxSummaries         int `mapstructure:"max_summaries"`
	SummarizeConcurrency int `mapstructure:"summarize_concurrency"`
}

// ImagesConfig configures illustration of featured summaries.
type ImagesConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	OutputDir   string `mapstructure:"output_dir"`
	Size        string `mapstructure:"size"`
	Quality     string `mapstructure:"quality"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ScheduleConfig configures periodic generation. Either Time (HH:MM) or Cron is used.
type ScheduleConfig struct {
	Time      string   `mapstructure:"time"`
	Cron      string   `mapstructure:"cron"`
	Timezone  string   `mapstructure:"timezone"`
	Source    string   `mapstructure:"source"`
	Links     []string `mapstructure:"links"`
	LinksFile string   `mapstructure:"links_file"`
	HNLimit   int      `mapstructure:"hn_limit"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	SourceStatic     = "static"
	SourceHackerNews = "hackernews"
)

// Defaults returns a Config with all default values set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			ImageModel: "dall-e-3",
		},
		Fetch: FetchConfig{
			InsecureSkipVerify: true,
		},
		Newsletter: NewsletterConfig{
			MaxSummaries: ranker.DefaultTop,
		},
		Images: ImagesConfig{
			Enabled:   true,
			OutputDir: "generated_images",
			Size:      "1024x1024",
			Quality:   "standard",
		},
		Schedule: ScheduleConfig{
			Timezone: "UTC",
			Source:   SourceStatic,
			HNLimit:  30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.image_model", d.OpenAI.ImageModel)
	v.SetDefault("openai.timeout", d.OpenAI.Timeout)
	v.SetDefault("fetch.insecure_skip_verify", d.Fetch.InsecureSkipVerify)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("newsletter.max_summaries", d.Newsletter.MaxSummaries)
	v.SetDefault("newsletter.summarize_concurrency", d.Newsletter.SummarizeConcurrency)
	v.SetDefault("images.enabled", d.Images.Enabled)
	v.SetDefault("images.output_dir", d.Images.OutputDir)
	v.SetDefault("images.size", d.Images.Size)
	v.SetDefault("images.quality", d.Images.Quality)
	v.SetDefault("images.concurrency", d.Images.Concurrency)
	v.SetDefault("schedule.time", d.Schedule.Time)
	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)
	v.SetDefault("schedule.source", d.Schedule.Source)
	v.SetDefault("schedule.links_file", d.Schedule.LinksFile)
	v.SetDefault("schedule.hn_limit", d.Schedule.HNLimit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; existing variables are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads an optional YAML config file, applies NEWSLETTER_* environment
// overrides and returns a validated Config. NEWSLETTER_CONFIG overrides path.
func Load(path string) (Config, error) {
	if envPath := os.Getenv(envPrefix + "_CONFIG"); envPath != "" {
		path = envPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.OpenAI.BaseURL = strings.TrimRight(cfg.OpenAI.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (or set OPENAI_API_KEY)")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Newsletter.MaxSummaries < 1 {
		return fmt.Errorf("newsletter.max_summaries must be at least 1, got %d", c.Newsletter.MaxSummaries)
	}
	if c.Fetch.Concurrency < 0 || c.Newsletter.SummarizeConcurrency < 0 || c.Images.Concurrency < 0 {
		return fmt.Errorf("concurrency limits must not be negative")
	}
	if c.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("fetch.max_body_bytes must not be negative")
	}

	if c.Images.Enabled {
		switch c.Images.Size {
		case "1024x1024", "1792x1024", "1024x1792":
		default:
			return fmt.Errorf("invalid images.size %q", c.Images.Size)
		}
		switch c.Images.Quality {
		case "standard", "hd":
		default:
			return fmt.Errorf("invalid images.quality %q", c.Images.Quality)
		}
		if c.Images.OutputDir == "" {
			return fmt.Errorf("images.output_dir is required when images are enabled")
		}
	}

	if c.Schedule.Time != "" {
		if err := ValidateTime(c.Schedule.Time); err != nil {
			return err
		}
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	switch c.Schedule.Source {
	case SourceStatic, SourceHackerNews:
	default:
		return fmt.Errorf("invalid schedule.source %q", c.Schedule.Source)
	}

	for i, sink := range c.Delivery {
		if err := sink.Validate(); err != nil {
			return fmt.Errorf("delivery[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateTime checks that a time string is in valid HH:MM 24-hour format.
func ValidateTime(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}

	if t[0] < '0' || t[0] > '9' || t[1] < '0' || t[1] > '9' ||
		t[3] < '0' || t[3] > '9' || t[4] < '0' || t[4] > '9' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}

	hour := (int(t[0]-'0') * 10) + int(t[1]-'0')
	minute := (int(t[3]-'0') * 10) + int(t[4]-'0')

	if hour > 23 {
		return fmt.Errorf("invalid time %q: hour must be 0-23", t)
	}
	if minute > 59 {
		return fmt.Errorf("invalid time %q: minute must be 0-59", t)
	}

	return nil
}
