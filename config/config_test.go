package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load("", "")
	require.Error(t, err)
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "30d")
	t.Setenv("JWT_COOKIE_EXPIRES_IN", "7")
	t.Setenv("BASE_URL", "https://blogly.example")
	t.Setenv("ADMIN_USERNAMES", " alice , bob ,")
	t.Setenv("S3_PRESIGN_TTL", "15m")
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load("", "")
	require.NoError(t, err)

	require.Equal(t, "s3cret", cfg.JWTSecret)
	require.Equal(t, 30*24*time.Hour, cfg.JWTExpiresIn)
	require.Equal(t, 7*24*time.Hour, cfg.CookieMaxAge())
	require.Equal(t, []string{"https://blogly.example"}, cfg.AllowedOrigins)
	require.Equal(t, []string{"alice", "bob"}, cfg.AdminUsernames)
	require.Equal(t, 15*time.Minute, cfg.S3PresignTTL)

	require.Equal(t, "3000", cfg.AppPort)
	require.Equal(t, 100, cfg.RateLimitPerHour)
	require.Equal(t, int64(25<<20), cfg.UploadMaxBytes())
	require.Equal(t, "mysql", cfg.DBDriver)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_PER_HOUR", "lots")

	_, err := Load("", "")
	require.Error(t, err)
}

func TestLoad_JSONFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"AppPort": "9090", "RateLimitPerHour": 10},
		"jwt": {"Secret": "from-json", "ExpiresIn": "72h"},
		"database": {"Driver": "sqlite", "DBName": "blog"},
		"s3": {"Bucket": "covers", "UsePathStyle": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_PORT", "7070")
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := Load("", path)
	require.NoError(t, err)

	require.Equal(t, "from-json", cfg.JWTSecret)
	require.Equal(t, 72*time.Hour, cfg.JWTExpiresIn)
	require.Equal(t, "7070", cfg.AppPort)
	require.Equal(t, 10, cfg.RateLimitPerHour)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "covers", cfg.S3Bucket)
	require.True(t, cfg.S3UsePathStyle)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	require.NoError(t, os.WriteFile(path, []byte("BLOGLY_TEST_SECRET_ONLY=1\nS3_BUCKET=env-file-bucket\n"), 0o600))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Cleanup(func() {
		os.Unsetenv("BLOGLY_TEST_SECRET_ONLY")
		os.Unsetenv("S3_BUCKET")
	})

	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, "env-file-bucket", cfg.S3Bucket)
}

func TestLoad_MissingFilesAreIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"), filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90d")
	require.NoError(t, err)
	require.Equal(t, 90*24*time.Hour, d)

	d, err = ParseDuration("1h30m")
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, d)

	_, err = ParseDuration("xd")
	require.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	cfg := &AppConfig{AdminUsernames: []string{"Alice"}}
	require.True(t, cfg.IsAdmin(" alice "))
	require.False(t, cfg.IsAdmin("bob"))
	require.False(t, cfg.IsAdmin(""))
}
