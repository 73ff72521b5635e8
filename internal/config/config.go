package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Albion    AlbionConfig    `mapstructure:"albion"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AlbionConfig holds Albion Online Data API configuration
type AlbionConfig struct {
	APIBaseURL        string        `mapstructure:"api_base_url" validate:"required,url"`
	Cities            []string      `mapstructure:"cities" validate:"required,min=2,dive,required"`
	Quality           int           `mapstructure:"quality" validate:"min=1,max=5"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	BatchSize         int           `mapstructure:"batch_size" validate:"min=1,max=200"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"min=1"`
	MaxQuoteAge       time.Duration `mapstructure:"max_quote_age"`
}

// CatalogConfig holds item catalog configuration
type CatalogConfig struct {
	ItemsPath      string `mapstructure:"items_path" validate:"required"`
	Locale         string `mapstructure:"locale" validate:"required"`
	FallbackLocale string `mapstructure:"fallback_locale" validate:"required"`
}

// ArbitrageConfig holds arbitrage policy configuration
type ArbitrageConfig struct {
	Mode     string `mapstructure:"mode" validate:"oneof=top_sells best_single"`
	TopSells int    `mapstructure:"top_sells" validate:"min=1"`
}

// CacheConfig holds quote cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DBPath        string        `mapstructure:"db_path"`
	TTL           time.Duration `mapstructure:"ttl"`
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// AssistantConfig holds the optional LLM item-identification configuration
type AssistantConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix is the prefix for environment variable overrides, e.g.
// SILVERROUTE_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "SILVERROUTE"

// DefaultCities is the fixed city enumeration used for tie breaking.
var DefaultCities = []string{"Martlock", "Bridgewatch", "Fort Sterling", "Lymhurst", "Thetford", "Caerleon"}

// Load reads configuration from file and environment variables.
// A missing file is not an error when path is empty; defaults and the
// environment are used instead. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Albion data defaults
	v.SetDefault("albion.api_base_url", "https://west.albion-online-data.com")
	v.SetDefault("albion.cities", DefaultCities)
	v.SetDefault("albion.quality", 1)
	v.SetDefault("albion.timeout", "15s")
	v.SetDefault("albion.max_retries", 3)
	v.SetDefault("albion.retry_delay_base", "1s")
	v.SetDefault("albion.batch_size", 50)
	v.SetDefault("albion.requests_per_minute", 180)
	v.SetDefault("albion.max_quote_age", "0s")

	// Catalog defaults
	v.SetDefault("catalog.items_path", "json/items.json")
	v.SetDefault("catalog.locale", "PT-BR")
	v.SetDefault("catalog.fallback_locale", "EN-US")

	// Arbitrage defaults
	v.SetDefault("arbitrage.mode", "top_sells")
	v.SetDefault("arbitrage.top_sells", 3)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.db_path", "./data/quotes.db")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.search_ttl", "10m")
	v.SetDefault("cache.prune_interval", "1h")

	// Assistant defaults
	v.SetDefault("assistant.enabled", false)
	v.SetDefault("assistant.base_url", "http://localhost:11434")
	v.SetDefault("assistant.model", "gemma3:4b")
	v.SetDefault("assistant.timeout", "30s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return formatValidationError(err)
	}

	// Validate Albion config
	if c.Albion.Timeout < 1*time.Second {
		return fmt.Errorf("albion.timeout must be at least 1 second")
	}
	if c.Albion.RetryDelayBase < 0 {
		return fmt.Errorf("albion.retry_delay_base must not be negative")
	}
	if c.Albion.MaxQuoteAge < 0 {
		return fmt.Errorf("albion.max_quote_age must not be negative")
	}
	seen := make(map[string]bool, len(c.Albion.Cities))
	for _, city := range c.Albion.Cities {
		if seen[city] {
			return fmt.Errorf("albion.cities contains %q more than once", city)
		}
		seen[city] = true
	}

	// Validate Cache config
	if c.Cache.Enabled {
		if c.Cache.DBPath == "" {
			return fmt.Errorf("cache.db_path is required when cache is enabled")
		}
		if c.Cache.TTL < 1*time.Second {
			return fmt.Errorf("cache.ttl must be at least 1 second")
		}
	}
	if c.Cache.SearchTTL < 0 {
		return fmt.Errorf("cache.search_ttl must not be negative")
	}

	// Validate Assistant config
	if c.Assistant.Enabled {
		if c.Assistant.BaseURL == "" {
			return fmt.Errorf("assistant.base_url is required when assistant is enabled")
		}
		if c.Assistant.Model == "" {
			return fmt.Errorf("assistant.model is required when assistant is enabled")
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// formatValidationError converts validator errors into config key messages
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, fmt.Sprintf("%s failed %s validation (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}
