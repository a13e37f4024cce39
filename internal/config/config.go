// Package config loads ledger engine configuration from a YAML file with
// environment variable expansion, falling back to plain environment
// variables when no file is given.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Port         string `yaml:"port"`
	DatabaseURL  string `yaml:"database_url"`
	RedisURL     string `yaml:"redis_url"`
	QuoteURL     string `yaml:"quote_url"`
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTLHrs  int    `yaml:"token_ttl_hours"`
	CacheTTLSecs int    `yaml:"cache_ttl_seconds"`
	StartingCash string `yaml:"starting_cash"`
}

// Load reads a YAML config file and expands ${VAR} environment variables,
// then applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         os.Getenv("PORT"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		QuoteURL:     os.Getenv("QUOTE_API_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		StartingCash: os.Getenv("STARTING_CASH"),
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.TokenTTLHrs <= 0 {
		c.TokenTTLHrs = 24
	}
	if c.CacheTTLSecs <= 0 {
		c.CacheTTLSecs = 30
	}
	if c.StartingCash == "" {
		c.StartingCash = "10000"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "dev-secret-change-me"
	}
}

// Validate checks field shapes that would otherwise fail at first use.
func (c *Config) Validate() error {
	cash, err := decimal.NewFromString(c.StartingCash)
	if err != nil {
		return fmt.Errorf("starting_cash %q: %w", c.StartingCash, err)
	}
	if cash.IsNegative() {
		return fmt.Errorf("starting_cash must not be negative, got %s", cash)
	}
	return nil
}

// StartingCashDecimal returns the parsed starting cash. Call only after
// Validate has passed.
func (c *Config) StartingCashDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.StartingCash)
	return d
}
