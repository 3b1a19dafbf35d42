// Package config loads server settings from the environment, then lets
// command-line flags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration.
type Config struct {
	Addr     string `env:"BATTLESHIP_ADDR" envDefault:":12345"`
	HTTPAddr string `env:"BATTLESHIP_HTTP_ADDR" envDefault:":8080"`
	ServerID string `env:"BATTLESHIP_SERVER_ID"`

	InactivityTimeout time.Duration `env:"BATTLESHIP_INACTIVITY_TIMEOUT" envDefault:"60s"`
	KeepAliveInterval time.Duration `env:"BATTLESHIP_KEEPALIVE_INTERVAL" envDefault:"15s"`
	SeatPollInterval  time.Duration `env:"BATTLESHIP_SEAT_POLL_INTERVAL" envDefault:"500ms"`
	WriteTimeout      time.Duration `env:"BATTLESHIP_WRITE_TIMEOUT" envDefault:"5s"`
	OutboxSize        int           `env:"BATTLESHIP_OUTBOX_SIZE" envDefault:"64"`

	DBPath      string        `env:"BATTLESHIP_DB_PATH" envDefault:"battleship.db"`
	RedisConn   string        `env:"REDIS_CONNSTRING"`
	JWTSecret   string        `env:"BATTLESHIP_JWT_SECRET"`
	TokenTTL    time.Duration `env:"BATTLESHIP_TOKEN_TTL" envDefault:"72h"`
	RequireAuth bool          `env:"BATTLESHIP_REQUIRE_AUTH" envDefault:"false"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"battleship"`

	Log LogConfig
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"28"`
}

// ParseConfig reads environ (the process environment when nil) and then
// args into a Config, and validates the result.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP line-protocol listen address")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API and /ws listen address (empty disables)")
	fs.DurationVar(&cfg.InactivityTimeout, "inactivity-timeout", cfg.InactivityTimeout, "disconnect clients silent for this long")
	fs.DurationVar(&cfg.KeepAliveInterval, "keepalive-interval", cfg.KeepAliveInterval, "interval between PING lines")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path (empty disables match history and users)")
	fs.BoolVar(&cfg.RequireAuth, "require-auth", cfg.RequireAuth, "require a login token on LOGIN")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	for name, d := range map[string]time.Duration{
		"inactivity timeout":  c.InactivityTimeout,
		"keep-alive interval": c.KeepAliveInterval,
		"seat poll interval":  c.SeatPollInterval,
		"write timeout":       c.WriteTimeout,
		"token ttl":           c.TokenTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.OutboxSize < 1 {
		errs = append(errs, fmt.Errorf("outbox size must be at least 1, got %d", c.OutboxSize))
	}
	if c.RequireAuth {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("require-auth needs BATTLESHIP_JWT_SECRET"))
		}
		if c.DBPath == "" {
			errs = append(errs, errors.New("require-auth needs a database for user accounts"))
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
