package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Proxy    ProxyConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

type ScraperConfig struct {
	RequestTimeout time.Duration `envconfig:"SCRAPER_REQUEST_TIMEOUT" default:"30s"`
	DelayMin       time.Duration `envconfig:"SCRAPER_DELAY_MIN" default:"1s"`
	DelayMax       time.Duration `envconfig:"SCRAPER_DELAY_MAX" default:"4s"`
	MaxPages       int           `envconfig:"SCRAPER_MAX_PAGES" default:"2"`
}

type ProxyConfig struct {
	// Comma-separated proxy URLs, each optionally embedding user:pass@.
	URLs     []string      `envconfig:"PROXY_URLS"`
	Cooldown time.Duration `envconfig:"PROXY_COOLDOWN" default:"2m"`
	Strategy string        `envconfig:"PROXY_STRATEGY" default:"round_robin"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:""`
	Name     string `envconfig:"DB_NAME" default:"stayradar"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
}

type RedisConfig struct {
	Addr           string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password       string `envconfig:"REDIS_PASSWORD" default:""`
	DB             int    `envconfig:"REDIS_DB" default:"0"`
	JobQueue       string `envconfig:"REDIS_JOB_QUEUE" default:"stayradar:jobs"`
	ProgressStream string `envconfig:"REDIS_PROGRESS_STREAM" default:"stayradar:progress"`
}

type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads .env if present and processes environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.DelayMin > c.Scraper.DelayMax {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be greater than SCRAPER_DELAY_MAX")
	}
	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}
	if c.Proxy.Strategy != "round_robin" && c.Proxy.Strategy != "random" {
		return fmt.Errorf("PROXY_STRATEGY must be round_robin or random, got %q", c.Proxy.Strategy)
	}
	return nil
}
