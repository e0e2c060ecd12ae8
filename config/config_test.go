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
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1816, cfg.Web.Port)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, 1200*time.Millisecond, cfg.Sync.Debounce())
	assert.Equal(t, 10*time.Second, cfg.Sync.PollInterval())
	assert.Equal(t, 20, cfg.Sync.ImportChunkSize)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
web:
  port: 9000
store:
  backend: redis
catalog:
  seed_demo: true
`), 0o600))
	t.Setenv("SHOPSYNC_STORE_REDIS_ADDR", "redis:6380")
	t.Setenv("SHOPSYNC_ADMIN_PROTECT_WRITES", "true")
	t.Setenv("SHOPSYNC_SYNC_POLL_SECONDS", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, "0.0.0.0", cfg.Web.Host, "unset keys keep defaults")
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6380", cfg.Store.RedisAddr)
	assert.True(t, cfg.Catalog.SeedDemo)
	assert.True(t, cfg.Admin.ProtectWrites)
	assert.Equal(t, 10, cfg.Sync.PollSeconds)

	// defaults stay untouched
	assert.Equal(t, 1816, DefaultAppConfig.Web.Port)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "ShopSync", cfg.System.Appid)
}

func TestLoadBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("web: [1, 2"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestInitDirs(t *testing.T) {
	cfg := &AppConfig{System: SysConfig{Workdir: t.TempDir()}}
	require.NoError(t, cfg.InitDirs())
	assert.DirExists(t, cfg.GetLogDir())
	assert.DirExists(t, cfg.GetDataDir())
}
