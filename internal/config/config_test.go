package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv прячет от Load переменные окружения хоста.
func clearEnv(t *testing.T) {
	for _, name := range []string{
		"PORT", "ALLOWED_ORIGINS", "DATABASE_URL", "MONGODB_URI", "REDIS_ADDR", "JWT_SECRET", "JWT_EXPIRE",
		"BLOG_SERVER_PORT", "BLOG_STORAGE_TYPE", "BLOG_AUTH_JWT_SECRET", "BLOG_AUTH_JWT_EXPIRE", "BLOG_SEED",
	} {
		t.Setenv(name, "")
	}
}

func testOptions(t *testing.T, dev bool) Options {
	dir := t.TempDir()
	return Options{Dev: dev, ConfigPaths: []string{dir}, EnvFile: filepath.Join(dir, ".env")}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(testOptions(t, true))
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, StorageInMemory, cfg.Storage.Type)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpire)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, devSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:5173")
	assert.False(t, cfg.Seed)
}

func TestLoad_SecretRequiredOutsideDev(t *testing.T) {
	clearEnv(t)

	_, err := Load(testOptions(t, false))
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load(testOptions(t, false))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_EXPIRE", "30d")
	t.Setenv("BLOG_SEED", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load(testOptions(t, true))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.JWTExpire)
	assert.True(t, cfg.Seed)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_YamlAndDotEnv(t *testing.T) {
	clearEnv(t)
	opts := testOptions(t, false)
	dir := opts.ConfigPaths[0]

	yaml := "server:\n  port: \"9000\"\nstorage:\n  type: postgres\npostgres:\n  dsn: postgres://localhost/blog\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(opts.EnvFile, []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	// godotenv не перезаписывает уже заданные переменные
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/blog", cfg.Postgres.DSN)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
}

func TestLoad_RejectsBadStorage(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOG_STORAGE_TYPE", "sqlite")

	_, err := Load(testOptions(t, true))
	assert.Error(t, err)

	t.Setenv("BLOG_STORAGE_TYPE", StoragePostgres)
	_, err = Load(testOptions(t, true))
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":   7 * 24 * time.Hour,
		"12h":  12 * time.Hour,
		"3600": time.Hour,
		"":     0,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"xd", "soon"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
