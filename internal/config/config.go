// Package config centraliza o carregamento de configurações do gateway:
// arquivos .env (godotenv), variáveis de ambiente e flags (kong).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/VietQuocHoang/export-user-info/internal/logger"
)

// ErrInvalid marca erros de validação; use errors.Is.
var ErrInvalid = errors.New("invalid config")

// EnvFiles são carregados nesta ordem; variáveis já definidas não são sobrescritas.
var EnvFiles = []string{".env.local", ".env"}

type Config struct {
	ListenAddr  string `name:"listen-addr" env:"LISTEN_ADDR" default:":8080" help:"HTTP listen address."`
	UpstreamURL string `name:"upstream-url" env:"UPSTREAM_URL" help:"Reverse proxy target. Empty serves the built-in routes."`
	LogLevel    string `name:"log-level" env:"LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)."`
	LogFormat   string `name:"log-format" env:"LOG_FORMAT" default:"text" enum:"text,json" help:"Log format (text, json)."`

	MetricsEnabled bool `name:"metrics-enabled" env:"METRICS_ENABLED" default:"true" negatable:"" help:"Expose Prometheus metrics on /metrics."`

	Rate        RateConfig        `embed:"" prefix:"rate-"`
	Concurrency ConcurrencyConfig `embed:"" prefix:"concurrency-"`
	Stats       StatsConfig       `embed:"" prefix:"stats-"`
}

type RateConfig struct {
	Enabled       bool          `name:"enabled" env:"RATE_ENABLED" default:"true" negatable:"" help:"Mount the sliding window limiter."`
	Limit         int           `name:"limit" env:"RATE_LIMIT" default:"10" help:"Requests admitted per window and key."`
	Window        time.Duration `name:"window" env:"RATE_WINDOW" default:"10s" help:"Sliding window length."`
	SweepInterval time.Duration `name:"sweep-interval" env:"RATE_SWEEP_INTERVAL" default:"60s" help:"Minimum interval between full store sweeps."`
	KeyHeader     string        `name:"key-header" env:"RATE_KEY_HEADER" help:"Key requests by this header instead of client address and path."`
}

type ConcurrencyConfig struct {
	Max     int           `name:"max" env:"CONCURRENCY_MAX" default:"100" help:"Maximum in-flight requests (0 disables)."`
	Timeout time.Duration `name:"timeout" env:"CONCURRENCY_TIMEOUT" default:"0s" help:"How long a request waits for a slot (0 waits until canceled)."`
}

type StatsConfig struct {
	RedisAddr     string        `name:"redis-addr" env:"RATE_STATS_REDIS_ADDR" help:"Redis address for decision stats (empty disables)."`
	RedisPassword string        `name:"redis-password" env:"RATE_STATS_REDIS_PASSWORD" help:"Redis password."`
	RedisDB       int           `name:"redis-db" env:"RATE_STATS_REDIS_DB" default:"0" help:"Redis database."`
	Prefix        string        `name:"prefix" env:"RATE_STATS_PREFIX" default:"ratelimit:stats" help:"Redis key prefix."`
	TTL           time.Duration `name:"ttl" env:"RATE_STATS_TTL" default:"24h" help:"TTL of bucketed and per-key hashes."`
	Bucket        string        `name:"bucket" env:"RATE_STATS_BUCKET" default:"minute" enum:"minute,none" help:"Time bucketing (minute, none)."`
	TrackKeys     bool          `name:"track-keys" env:"RATE_STATS_TRACK_KEYS" help:"Also count per rate limit key (high cardinality)."`
	Memory        bool          `name:"memory" env:"RATE_STATS_MEMORY_ENABLED" help:"Keep in-memory counters and serve GET /stats."`
	MaxEntries    int           `name:"max-entries" env:"RATE_STATS_MAX_ENTRIES" default:"1000" help:"Distinct routes/keys kept in memory before folding the rest into one bucket."`
	Timeout       time.Duration `name:"timeout" env:"RATE_STATS_TIMEOUT" default:"100ms" help:"Deadline for recording one decision (0 disables)."`
}

// RedisEnabled indica se as estatísticas devem ir para o Redis.
func (s StatsConfig) RedisEnabled() bool { return s.RedisAddr != "" }

// Load lê os arquivos .env, depois flags e variáveis de ambiente (flags vencem).
func Load(args []string) (Config, error) {
	if err := loadEnvFiles(EnvFiles...); err != nil {
		return Config{}, err
	}

	var cfg Config
	parser, err := kong.New(&cfg,
		kong.Name("gateway"),
		kong.Description("Sliding window admission gateway."),
		kong.UsageOnError(),
	)
	if err != nil {
		return Config{}, fmt.Errorf("build flag parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c Config) validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL: %w", ErrInvalid, err)
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: UPSTREAM_URL must be an absolute URL, got %q", ErrInvalid, c.UpstreamURL)
		}
	}
	switch {
	case c.Rate.Limit < 0:
		return fmt.Errorf("%w: RATE_LIMIT must be >= 0", ErrInvalid)
	case c.Rate.Window < 0:
		return fmt.Errorf("%w: RATE_WINDOW must be >= 0", ErrInvalid)
	case c.Rate.SweepInterval <= 0:
		return fmt.Errorf("%w: RATE_SWEEP_INTERVAL must be > 0", ErrInvalid)
	case c.Concurrency.Max < 0:
		return fmt.Errorf("%w: CONCURRENCY_MAX must be >= 0", ErrInvalid)
	case c.Concurrency.Timeout < 0:
		return fmt.Errorf("%w: CONCURRENCY_TIMEOUT must be >= 0", ErrInvalid)
	case c.Stats.MaxEntries <= 0:
		return fmt.Errorf("%w: RATE_STATS_MAX_ENTRIES must be > 0", ErrInvalid)
	case c.Stats.Timeout < 0:
		return fmt.Errorf("%w: RATE_STATS_TIMEOUT must be >= 0", ErrInvalid)
	}
	return nil
}
