package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	RunStore  RunStoreConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig holds reasoning capability configuration
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// BrowserConfig holds headless browser and listing extraction configuration
type BrowserConfig struct {
	ExecPath          string        `mapstructure:"exec_path"`
	Headless          bool          `mapstructure:"headless"`
	SearchURL         string        `mapstructure:"search_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"`
	MaxResults        int           `mapstructure:"max_results"`
	ViewportWidth     int           `mapstructure:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"`
	UserAgents        []string      `mapstructure:"user_agents"`
	Proxies           []string      `mapstructure:"proxies"`
	ProxyFile         string        `mapstructure:"proxy_file"`
}

// PipelineConfig holds recommendation pipeline tuning
type PipelineConfig struct {
	MaxKeywords    int     `mapstructure:"max_keywords"`
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

// RunStoreConfig holds run record storage configuration
type RunStoreConfig struct {
	Type       string        `mapstructure:"type"` // "memory", "redis" or "sqlite"
	RedisURL   string        `mapstructure:"redis_url"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pillwise/")

	v.SetEnvPrefix("PILLWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already present in the environment are not overridden.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key is registered so
// AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "15s")

	// LLM defaults
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", "90s")
	v.SetDefault("llm.requests_per_minute", 60)

	// Browser defaults
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.search_url", "https://kr.iherb.com/search?kw=%s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.wait_timeout", "15s")
	v.SetDefault("browser.max_results", 3)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.user_agents", []string{})
	v.SetDefault("browser.proxies", []string{})
	v.SetDefault("browser.proxy_file", "")

	// Pipeline defaults
	v.SetDefault("pipeline.max_keywords", 3)
	v.SetDefault("pipeline.match_threshold", 40.0)

	// Run store defaults
	v.SetDefault("runstore.type", "memory")
	v.SetDefault("runstore.redis_url", "")
	v.SetDefault("runstore.sqlite_path", "pillwise.db")
	v.SetDefault("runstore.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 30)

	// Log defaults
	v.SetDefault("log.level", "info")
}

// maxSearchBound caps both the keywords searched per run and the listings kept per keyword
const maxSearchBound = 3

// validate validates the configuration
func validate(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required (set PILLWISE_LLM_API_KEY)")
	}

	if !strings.Contains(config.Browser.SearchURL, "%s") {
		return fmt.Errorf("browser search URL must contain a %%s placeholder, got: %s", config.Browser.SearchURL)
	}

	if config.Browser.MaxResults <= 0 || config.Browser.MaxResults > maxSearchBound {
		return fmt.Errorf("browser max results must be between 1 and %d, got: %d", maxSearchBound, config.Browser.MaxResults)
	}

	if config.Pipeline.MaxKeywords <= 0 || config.Pipeline.MaxKeywords > maxSearchBound {
		return fmt.Errorf("pipeline max keywords must be between 1 and %d, got: %d", maxSearchBound, config.Pipeline.MaxKeywords)
	}

	switch config.RunStore.Type {
	case "memory":
	case "redis":
		if config.RunStore.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when run store type is 'redis'")
		}
	case "sqlite":
		if config.RunStore.SQLitePath == "" {
			return fmt.Errorf("SQLite path is required when run store type is 'sqlite'")
		}
	default:
		return fmt.Errorf("run store type must be 'memory', 'redis' or 'sqlite', got: %s", config.RunStore.Type)
	}

	if config.RunStore.TTL <= 0 {
		return fmt.Errorf("run store TTL must be positive, got: %s", config.RunStore.TTL)
	}

	return nil
}
