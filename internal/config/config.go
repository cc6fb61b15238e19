// Package config loads the service configuration from a YAML file with
// environment variable overrides. Secrets live in .env locally and in real
// env vars in deployment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Resend   ResendConfig   `yaml:"resend"`
	Redis    RedisConfig    `yaml:"redis"`
	Sending  SendingConfig  `yaml:"sending"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ResendConfig holds the Resend API credentials and sender identity
type ResendConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// RedisConfig holds the optional shared rate-limiter backend. Sending works
// without it; the daily cap is then enforced per process only.
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SendingConfig holds pacing defaults. The persisted settings table takes
// precedence for limits that operators tune at runtime.
type SendingConfig struct {
	DelayMeanSeconds int `yaml:"delay_mean_seconds"`
	DelayStdSeconds  int `yaml:"delay_std_seconds"`
	DelayMinSeconds  int `yaml:"delay_min_seconds"`
}

// CacheConfig holds in-process cache TTLs in seconds
type CacheConfig struct {
	BlacklistTTLSeconds  int `yaml:"blacklist_ttl_seconds"`
	DailyCountTTLSeconds int `yaml:"daily_count_ttl_seconds"`
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "outreach"
	}
	if cfg.Sending.DelayMeanSeconds == 0 {
		cfg.Sending.DelayMeanSeconds = 90
	}
	if cfg.Sending.DelayStdSeconds == 0 {
		cfg.Sending.DelayStdSeconds = 30
	}
	if cfg.Sending.DelayMinSeconds == 0 {
		cfg.Sending.DelayMinSeconds = 30
	}
	if cfg.Cache.BlacklistTTLSeconds == 0 {
		cfg.Cache.BlacklistTTLSeconds = 300
	}
	if cfg.Cache.DailyCountTTLSeconds == 0 {
		cfg.Cache.DailyCountTTLSeconds = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is read first so local development does not need
// real env vars. A missing config file is not an error; env vars alone can
// configure the service.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_FROM_EMAIL"); v != "" {
		cfg.Resend.FromEmail = v
	}
	if v := os.Getenv("RESEND_FROM_NAME"); v != "" {
		cfg.Resend.FromName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	return cfg, nil
}
