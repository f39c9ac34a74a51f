package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/typedchat/pkg/models"
)

// APIKeyEnv is the environment variable holding the API key.
const APIKeyEnv = "OPENAI_API_KEY"

// ErrMissingAPIKey is returned when no API key can be found.
var ErrMissingAPIKey = errors.New("unable to find the OpenAI API key in the environment; " +
	"set the OPENAI_API_KEY environment variable or add it to a .env file. " +
	"API keys can be found at <https://platform.openai.com/api-keys>")

// Config holds all typedchat configuration.
type Config struct {
	APIKey              string                `yaml:"api_key"`
	Model               string                `yaml:"model"`
	BaseURL             string                `yaml:"base_url"`
	ChatCompletionsPath string                `yaml:"chat_completions_path"`
	Timeout             time.Duration         `yaml:"timeout"`
	Concurrency         int                   `yaml:"concurrency"`
	Sampling            models.Sampling       `yaml:"sampling"`
	Cache               CacheConfig           `yaml:"cache"`
	Usage               UsageConfig           `yaml:"usage"`
	Budgets             []models.BudgetPolicy `yaml:"budgets"`
	Log                 LogConfig             `yaml:"log"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// Capacity bounds the in-memory LRU.
	Capacity int `yaml:"capacity"`
	// Directory enables the disk mirror when non-empty.
	Directory string `yaml:"directory"`
}

// UsageConfig controls the SQLite usage ledger. An empty DBPath disables it.
type UsageConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Model:               "gpt-4o",
		BaseURL:             "https://api.openai.com/v1/",
		ChatCompletionsPath: "chat/completions",
		Timeout:             120 * time.Second,
		Concurrency:         4,
		Cache: CacheConfig{
			Capacity: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects settings the client cannot work with.
func (c *Config) Validate() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if len(c.Budgets) > 0 && c.Usage.DBPath == "" {
		return errors.New("budgets require usage.db_path")
	}
	for i, b := range c.Budgets {
		switch b.Period {
		case models.BudgetDaily, models.BudgetMonthly:
		default:
			return fmt.Errorf("budgets[%d]: period must be daily or monthly, got %q", i, b.Period)
		}
		if b.MaxTokens <= 0 && b.MaxCostUSD <= 0 {
			return fmt.Errorf("budgets[%d]: set max_tokens or max_cost_usd", i)
		}
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// ResolveAPIKey returns the configured key, falling back to the environment.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	return APIKeyFromEnv()
}

// APIKeyFromEnv reads OPENAI_API_KEY from the process environment, then from
// a .env file in the working directory.
func APIKeyFromEnv() (string, error) {
	return apiKeyFrom(".env")
}

func apiKeyFrom(dotenv string) (string, error) {
	v := viper.New()
	v.AutomaticEnv()
	if key := v.GetString(APIKeyEnv); key != "" {
		return key, nil
	}

	v.SetConfigFile(dotenv)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err == nil {
		if key := v.GetString(APIKeyEnv); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}
