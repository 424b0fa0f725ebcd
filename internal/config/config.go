// Package config loads settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Prefix namespaces every variable, e.g. EVENTS_SERVER_ADDRESS.
const Prefix = "events"

type Config struct {
	Server struct {
		Address         string        `default:":8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"5s"`
		WriteTimeout    time.Duration `split_words:"true" default:"10s"`
		IdleTimeout     time.Duration `split_words:"true" default:"60s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
		MaxBodyBytes    int64         `split_words:"true" default:"65536"`
	}
	Observability struct {
		Address string `default:":9090"`
	}
	// Postgres is optional; without a DSN events live in memory.
	Postgres struct {
		DSN        string
		MaxConns   int32  `split_words:"true" default:"10"`
		Migrations string `default:"migrations"`
	}
	// Redis is optional; without an address the limiter is per process.
	Redis struct {
		Address  string
		Password string
		DB       int
	}
	List struct {
		RPS       float64       `default:"20"`
		Burst     int           `default:"40"`
		CacheTTL  time.Duration `split_words:"true" default:"60s"`
		CacheSize int64         `split_words:"true" default:"1000"`
	}
	Audit struct {
		QueueSize    int           `split_words:"true" default:"10000"`
		BatchSize    int           `split_words:"true" default:"200"`
		BatchMaxWait time.Duration `split_words:"true" default:"500ms"`
	}
	LogLevel string `split_words:"true" default:"info"`
	Version  string `default:"dev"`
}

// Load reads .env when present, then the process environment.
func Load(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid EVENTS_LOG_LEVEL: %w", err)
	}
	if c.List.Burst < 1 {
		return fmt.Errorf("invalid EVENTS_LIST_BURST: must be positive")
	}
	if c.Audit.QueueSize < 1 || c.Audit.BatchSize < 1 {
		return fmt.Errorf("invalid audit sizing: queue=%d batch=%d", c.Audit.QueueSize, c.Audit.BatchSize)
	}
	return nil
}

func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
