package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	"github.com/m3rciful/relaybot/internal/ai"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
ai:
  api_key: "yaml-key"
  models: [m1, m2]
  variant_timeout: 5s
storage:
  backend: SQLite
  dir: /var/lib/relaybot
health:
  listen: "127.0.0.1:9999"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{"m1", "m2"}, cfg.AI.Models)
	assert.Equal(t, 5*time.Second, cfg.AI.VariantTimeout)
	assert.Equal(t, ai.DefaultFallbackModel, cfg.AI.FallbackModel)
	assert.Equal(t, ai.DefaultFallbackTimeout, cfg.AI.FallbackTimeout)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/relaybot/relaybot.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "127.0.0.1:9999", cfg.Health.Listen)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, ai.DefaultModels, cfg.AI.Models)
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	path := writeConfig(t, `
telegram:
  token: "123:abc"
ai:
  api_key: "yaml-key"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, defaultStorageDir, cfg.Storage.Dir)
}

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("BOT_TOKEN", "")
	_, err := LoadConfig(writeConfig(t, "storage:\n  backend: memory\n"))
	require.ErrorContains(t, err, "telegram token is required")
}

func TestConfigNormalizeStorage(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "unknown backend", cfg: Config{Storage: StorageConfig{Backend: "redis"}}, wantErr: "invalid storage.backend"},
		{name: "postgres without host", cfg: Config{Storage: StorageConfig{Backend: "postgres"}}, wantErr: "database.host"},
		{name: "s3 without bucket", cfg: Config{Storage: StorageConfig{Backend: "s3"}, S3: S3Config{Endpoint: "s3.local"}}, wantErr: "s3.bucket"},
		{name: "memory", cfg: Config{Storage: StorageConfig{Backend: "memory"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.normalize()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConfigNormalizePostgresDefaults(t *testing.T) {
	cfg := Config{Storage: StorageConfig{Backend: "postgres"}}
	cfg.Database.Host = "db"
	cfg.Database.Name = "relay"
	require.NoError(t, cfg.normalize())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}
