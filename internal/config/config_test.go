package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("MAILER_PROVIDER", "")
	t.Setenv("JWT_TTL_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.MailerTimeout)
	assert.Equal(t, "log", cfg.MailerProvider)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "9090"
jwt_secret: from-file
mailer_provider: command
mailer_timeout_seconds: 5
cors_allowed_origins:
  - http://localhost:3000
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("MAILER_PROVIDER", "")
	t.Setenv("MAILER_TIMEOUT_SECONDS", "")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APP_BASE_URL", "https://app.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "command", cfg.MailerProvider)
	assert.Equal(t, 5*time.Second, cfg.MailerTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://app.example", cfg.AppBaseURL)
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestReadIntFallback(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, readInt("SOME_INT", 7))
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, readInt("SOME_INT", 7))
}

func TestLoadLeavesLoggingToEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_ENCODING", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.LogLevel)
	assert.Empty(t, cfg.LogEncoding)

	t.Setenv("LOG_ENCODING", "json")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogEncoding)
}

func TestReadBoolFallback(t *testing.T) {
	t.Setenv("SOME_BOOL", "maybe")
	assert.False(t, readBool("SOME_BOOL", false))
	t.Setenv("SOME_BOOL", "true")
	assert.True(t, readBool("SOME_BOOL", false))
}
