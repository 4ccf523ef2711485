package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when only the API key is set", func(t *testing.T) {
		t.Setenv("PILLWISE_LLM_API_KEY", "test-key")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "3001", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)
		assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
		assert.Equal(t, "gpt-4o", cfg.LLM.Model)
		assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
		assert.Equal(t, "https://kr.iherb.com/search?kw=%s", cfg.Browser.SearchURL)
		assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
		assert.Equal(t, 15*time.Second, cfg.Browser.WaitTimeout)
		assert.Equal(t, 3, cfg.Browser.MaxResults)
		assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
		assert.Equal(t, 800, cfg.Browser.ViewportHeight)
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, 3, cfg.Pipeline.MaxKeywords)
		assert.Equal(t, 40.0, cfg.Pipeline.MatchThreshold)
		assert.Equal(t, "memory", cfg.RunStore.Type)
		assert.Equal(t, 24*time.Hour, cfg.RunStore.TTL)
		assert.Equal(t, 30, cfg.RateLimit.PerIP)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("PILLWISE_LLM_API_KEY", "custom-key")
		t.Setenv("PILLWISE_LLM_MODEL", "gpt-4o-mini")
		t.Setenv("PILLWISE_SERVER_PORT", "9090")
		t.Setenv("PILLWISE_SERVER_ENVIRONMENT", "production")
		t.Setenv("PILLWISE_BROWSER_WAIT_TIMEOUT", "5s")
		t.Setenv("PILLWISE_RUNSTORE_TYPE", "redis")
		t.Setenv("PILLWISE_RUNSTORE_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("PILLWISE_RATELIMIT_PER_IP", "5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "custom-key", cfg.LLM.APIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, 5*time.Second, cfg.Browser.WaitTimeout)
		assert.Equal(t, "redis", cfg.RunStore.Type)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RunStore.RedisURL)
		assert.Equal(t, 5, cfg.RateLimit.PerIP)
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		t.Setenv("PILLWISE_LLM_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, "invalid configuration: LLM API key is required (set PILLWISE_LLM_API_KEY)", err.Error())
	})

	t.Run("fails validation when redis URL missing for redis store", func(t *testing.T) {
		t.Setenv("PILLWISE_LLM_API_KEY", "test-key")
		t.Setenv("PILLWISE_RUNSTORE_TYPE", "redis")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	chdir := func(t *testing.T) {
		t.Helper()
		originalDir, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(originalDir) })
	}

	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdir(t)
		assert.NoError(t, loadEnvFile())
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		chdir(t)
		envContent := `
# Comment line
PILLWISE_TEST_VAR_1=value1

PILLWISE_TEST_VAR_2=value2
# PILLWISE_TEST_COMMENTED=should_not_load
`
		require.NoError(t, os.WriteFile(".env", []byte(envContent), 0o644))
		t.Cleanup(func() {
			os.Unsetenv("PILLWISE_TEST_VAR_1")
			os.Unsetenv("PILLWISE_TEST_VAR_2")
		})

		require.NoError(t, loadEnvFile())

		assert.Equal(t, "value1", os.Getenv("PILLWISE_TEST_VAR_1"))
		assert.Equal(t, "value2", os.Getenv("PILLWISE_TEST_VAR_2"))
		assert.Empty(t, os.Getenv("PILLWISE_TEST_COMMENTED"))
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		chdir(t)
		t.Setenv("PILLWISE_TEST_OVERRIDE", "existing-value")
		require.NoError(t, os.WriteFile(".env", []byte("PILLWISE_TEST_OVERRIDE=new-value"), 0o644))

		require.NoError(t, loadEnvFile())

		assert.Equal(t, "existing-value", os.Getenv("PILLWISE_TEST_OVERRIDE"))
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:      LLMConfig{APIKey: "test-key"},
			Browser:  BrowserConfig{SearchURL: "https://example.com/search?q=%s", MaxResults: 3},
			Pipeline: PipelineConfig{MaxKeywords: 3},
			RunStore: RunStoreConfig{Type: "memory", TTL: time.Hour},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		assert.NoError(t, validate(valid()))
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty API key", mutate: func(c *Config) { c.LLM.APIKey = "" }},
		{name: "search URL without placeholder", mutate: func(c *Config) { c.Browser.SearchURL = "https://example.com" }},
		{name: "zero max results", mutate: func(c *Config) { c.Browser.MaxResults = 0 }},
		{name: "zero max keywords", mutate: func(c *Config) { c.Pipeline.MaxKeywords = 0 }},
		{name: "max results above three", mutate: func(c *Config) { c.Browser.MaxResults = 4 }},
		{name: "max keywords above three", mutate: func(c *Config) { c.Pipeline.MaxKeywords = 5 }},
		{name: "unknown run store type", mutate: func(c *Config) { c.RunStore.Type = "postgres" }},
		{name: "redis without URL", mutate: func(c *Config) { c.RunStore.Type = "redis" }},
		{name: "sqlite without path", mutate: func(c *Config) { c.RunStore.Type = "sqlite" }},
		{name: "zero TTL", mutate: func(c *Config) { c.RunStore.TTL = 0 }},
	}
	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("validate() error = nil, want error")
			}
		})
	}

	t.Run("accepts lower search bounds", func(t *testing.T) {
		cfg := valid()
		cfg.Browser.MaxResults = 1
		cfg.Pipeline.MaxKeywords = 2
		assert.NoError(t, validate(cfg))
	})

	t.Run("validates sqlite store with path", func(t *testing.T) {
		cfg := valid()
		cfg.RunStore.Type = "sqlite"
		cfg.RunStore.SQLitePath = "runs.db"
		assert.NoError(t, validate(cfg))
	})
}
