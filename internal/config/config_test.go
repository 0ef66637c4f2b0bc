package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/database"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "")
	t.Setenv("EVENTS_ENABLED", "yes")

	cfg := Load()
	assert.Equal(t, database.SQLite, cfg.DBDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ledger.db", cfg.SQLitePath)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.True(t, cfg.EventsEnabled)
	assert.False(t, cfg.SeedEnabled)
	assert.Empty(t, cfg.DBHost)
}

func TestLoadMySQL(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "ledger")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "tuition")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SEED_ENABLED", "true")
	t.Setenv("ADMIN_PASSWORD", "changeme")

	cfg := Load()
	assert.Equal(t, database.MySQL, cfg.DBDriver)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.SeedEnabled)
	assert.Equal(t, "changeme", cfg.AdminPassword)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_TEST_A=from-file\nLEDGER_TEST_B=from-file\n"), 0o600))

	t.Setenv("LEDGER_TEST_B", "from-env")
	t.Setenv("LEDGER_TEST_A", "")
	require.NoError(t, os.Unsetenv("LEDGER_TEST_A"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("LEDGER_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("LEDGER_TEST_B"))
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "bogus")

	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}
