package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NEWSLETTER_CONFIG", "")
	t.Setenv("NEWSLETTER_OPENAI_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, ":8000", d.Server.Addr)
	assert.Equal(t, "gpt-4o-mini", d.OpenAI.Model)
	assert.Equal(t, "dall-e-3", d.OpenAI.ImageModel)
	assert.Equal(t, 8, d.Newsletter.MaxSummaries)
	assert.True(t, d.Fetch.InsecureSkipVerify)
	assert.Zero(t, d.Fetch.Timeout)
	assert.Zero(t, d.Fetch.Concurrency)
	assert.Equal(t, "generated_images", d.Images.OutputDir)
	assert.Equal(t, "1024x1024", d.Images.Size)
	assert.Equal(t, "standard", d.Images.Quality)
	assert.Equal(t, "UTC", d.Schedule.Timezone)
	assert.Equal(t, SourceStatic, d.Schedule.Source)
	assert.Equal(t, "info", d.Log.Level)
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
openai:
  api_key: "test-key"
  model: "gpt-4o"
fetch:
  timeout: 15s
  insecure_skip_verify: false
newsletter:
  max_summaries: 5
schedule:
  time: "07:30"
  timezone: "Europe/Rome"
  links:
    - https://example.com/a
    - https://example.com/b
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Fetch.InsecureSkipVerify)
	assert.Equal(t, 5, cfg.Newsletter.MaxSummaries)
	assert.Equal(t, "07:30", cfg.Schedule.Time)
	assert.Equal(t, "Europe/Rome", cfg.Schedule.Timezone)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, cfg.Schedule.Links)

	// Defaults should be preserved for unset fields
	assert.Equal(t, "dall-e-3", cfg.OpenAI.ImageModel)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_NoFileUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, 8, cfg.Newsletter.MaxSummaries)
}

func TestLoad_PrefixedEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
openai:
  api_key: "file-key"
newsletter:
  max_summaries: 5
`)
	t.Setenv("NEWSLETTER_OPENAI_API_KEY", "env-key")
	t.Setenv("NEWSLETTER_NEWSLETTER_MAX_SUMMARIES", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
	assert.Equal(t, 3, cfg.Newsletter.MaxSummaries)
}

func TestLoad_EnvConfigPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
openai:
  api_key: "env-path-key"
`)
	t.Setenv("NEWSLETTER_CONFIG", path)

	cfg, err := Load("wrong-path.yaml")
	require.NoError(t, err)
	assert.Equal(t, "env-path-key", cfg.OpenAI.APIKey)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
newsletter:
  max_summaries: 4
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
openai:
  api_key: "test
  invalid: yaml: [
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_DeliverySinks(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
openai:
  api_key: "k"
delivery:
  - id: archive
    type: file
    file:
      dir: "`+dir+`"
  - id: hook
    type: webhook
    webhook:
      url: "https://hooks.example.com/newsletter"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Delivery, 2)
	assert.Equal(t, "archive", cfg.Delivery[0].ID)
	assert.Equal(t, dir, cfg.Delivery[0].File.Dir)
	assert.Equal(t, "https://hooks.example.com/newsletter", cfg.Delivery[1].Webhook.URL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Defaults()
		c.OpenAI.APIKey = "k"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults with key", func(c *Config) {}, true},
		{"zero max summaries", func(c *Config) { c.Newsletter.MaxSummaries = 0 }, false},
		{"negative concurrency", func(c *Config) { c.Fetch.Concurrency = -1 }, false},
		{"bad image size", func(c *Config) { c.Images.Size = "10x10" }, false},
		{"bad image size ignored when disabled", func(c *Config) { c.Images.Enabled = false; c.Images.Size = "10x10" }, true},
		{"bad quality", func(c *Config) { c.Images.Quality = "ultra" }, false},
		{"bad schedule time", func(c *Config) { c.Schedule.Time = "25:00" }, false},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Invalid/Zone" }, false},
		{"bad source", func(c *Config) { c.Schedule.Source = "rss" }, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateTime(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"00:00", true},
		{"09:00", true},
		{"23:59", true},
		{"24:00", false},
		{"23:60", false},
		{"9:00", false},
		{"abc", false},
		{"12:0a", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateTime(tt.input)
		if tt.valid && err != nil {
			t.Errorf("ValidateTime(%q) returned unexpected error: %v", tt.input, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateTime(%q) expected error, got nil", tt.input)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NEWSLETTER_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("NEWSLETTER_TEST_DOTENV", "")
	os.Unsetenv("NEWSLETTER_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("NEWSLETTER_TEST_DOTENV"))
}
