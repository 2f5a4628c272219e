package config

import (
	"path/filepath"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()

	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/expenses")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/expenses")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 25, cfg.Database.MaxConnections)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
	require.Equal(t, "expense-server", cfg.Auth.Issuer)
	require.Equal(t, 365, cfg.Jobs.AuditRetentionDays)
	require.Equal(t, 60, cfg.Jobs.StaleSubmissionDays)
	require.Equal(t, "receipt-vision-1", cfg.OCR.Model)
	require.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	require.Equal(t, "development", cfg.Environment)
	require.True(t, cfg.CORS.AllowAllOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/expenses")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("OCR_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.org, https://staging.example.org")

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2*time.Hour, cfg.Auth.JWTExpiry)
	require.Equal(t, 0.5, cfg.OCR.RequestsPerSecond)
	require.False(t, cfg.CORS.AllowAllOrigins)
	require.Equal(t, []string{"https://app.example.org", "https://staging.example.org"}, cfg.CORS.AllowedOrigins)
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/expenses")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestApplyFileOverlaysValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  port: 9191
  base_url: https://expenses.example.org
auth:
  jwt_expiry_hours: 8
logging:
  level: debug
environment: production
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg := Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
		Auth:    AuthConfig{JWTExpiry: 24 * time.Hour},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
	require.NoError(t, ApplyFile(&cfg, path))

	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "https://expenses.example.org", cfg.Server.BaseURL)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8*time.Hour, cfg.Auth.JWTExpiry)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "production", cfg.Environment)
}

func TestApplyFileMissingFile(t *testing.T) {
	cfg := Config{}
	err := ApplyFile(&cfg, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
