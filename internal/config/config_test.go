package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 10, cfg.HTTP.AuthRateLimit)
	assert.NotEmpty(t, cfg.HTTP.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_TTL", "-1h")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss:word", Name: "tally"}
	dsn := d.DSN()
	assert.True(t, strings.Contains(dsn, "tcp(db:3306)"), dsn)
	assert.True(t, strings.Contains(dsn, "parseTime=true"), dsn)
	assert.True(t, strings.Contains(dsn, "multiStatements=true"), dsn)
	assert.True(t, strings.Contains(dsn, "clientFoundRows=true"), dsn)

	d.dsnOverride = "root:root@tcp(x:1)/y"
	assert.Equal(t, "root:root@tcp(x:1)/y", d.DSN())
}
