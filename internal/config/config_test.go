package config

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("battleship", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), nil, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":12345", cfg.Addr)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 60*time.Second, cfg.InactivityTimeout)
	assert.Equal(t, 15*time.Second, cfg.KeepAliveInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.SeatPollInterval)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 64, cfg.OutboxSize)
	assert.Equal(t, "battleship.db", cfg.DBPath)
	assert.Empty(t, cfg.RedisConn)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.RequireAuth)
	assert.Equal(t, "battleship", cfg.ServiceName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
}

func TestParseConfigOverrides(t *testing.T) {
	environ := map[string]string{
		"BATTLESHIP_ADDR":               ":7000",
		"BATTLESHIP_INACTIVITY_TIMEOUT": "2m",
		"BATTLESHIP_OUTBOX_SIZE":        "8",
		"BATTLESHIP_JWT_SECRET":         "s3cret",
		"REDIS_CONNSTRING":              "redis://localhost:6379/0",
		"LOG_LEVEL":                     "debug",
		"LOG_FILE":                      "/tmp/battleship.log",
	}
	args := []string{"-addr", ":7001", "-keepalive-interval", "3s", "-require-auth", "-http-addr", ""}

	cfg, err := ParseConfig(newFlagSet(), args, environ)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Addr, "flag beats env")
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 2*time.Minute, cfg.InactivityTimeout)
	assert.Equal(t, 3*time.Second, cfg.KeepAliveInterval)
	assert.Equal(t, 8, cfg.OutboxSize)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisConn)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/battleship.log", cfg.Log.File)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		args    []string
		want    string
	}{
		{"malformed duration", map[string]string{"BATTLESHIP_WRITE_TIMEOUT": "soon"}, nil, "parse env"},
		{"zero inactivity", nil, []string{"-inactivity-timeout", "0s"}, "inactivity timeout must be positive"},
		{"empty outbox", map[string]string{"BATTLESHIP_OUTBOX_SIZE": "0"}, nil, "outbox size must be at least 1"},
		{"auth without secret", nil, []string{"-require-auth"}, "BATTLESHIP_JWT_SECRET"},
		{"auth without db", map[string]string{"BATTLESHIP_JWT_SECRET": "x"}, []string{"-require-auth", "-db", ""}, "database"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, nil, "invalid log level"},
		{"unknown flag", nil, []string{"-nope"}, "not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := tt.environ
			if environ == nil {
				environ = map[string]string{}
			}
			_, err := ParseConfig(newFlagSet(), tt.args, environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
