package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_id": 3,
		"log_level": "debug",
		"multi_process": true,
		"role": "client",
		"shared_backend": "redis",
		"redis_addr": "10.0.0.1:6379,10.0.0.2:6379"
	}`), 0o644))

	require.NoError(t, LoadConfig(path, nil))
	want := Default()
	want.ServerId = 3
	want.LogLevel = "debug"
	want.MultiProcess = true
	want.Role = RoleClient
	want.SharedBackend = BackendRedis
	want.RedisAddr = "10.0.0.1:6379,10.0.0.2:6379"
	if diff := cmp.Diff(want, Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, Config.IsClient())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_id = 7

[timer]
use_system_clock = false
tick_driver = "ticker"
shm_path = "/dev/shm/tick"

[log]
log_zap = true
`), 0o644))

	require.NoError(t, LoadConfig(path, nil))
	assert.Equal(t, 7, Config.ServerId)
	assert.False(t, Config.UseSystemClock)
	assert.Equal(t, "ticker", Config.TickDriver)
	assert.Equal(t, "/dev/shm/tick", Config.ShmPath)
	assert.True(t, Config.LogZap)
	assert.Equal(t, "info", Config.LogLevel)
	assert.False(t, Config.IsClient())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WINTIMER_ROLE", "client")
	t.Setenv("WINTIMER_MULTI_PROCESS", "true")
	t.Setenv("WINTIMER_REDIS_SYNC_MS", "25")
	t.Setenv("WINTIMER_LOG_LEVEL", "warn")

	require.NoError(t, LoadConfig("", LoadFromEnv))
	assert.Equal(t, RoleClient, Config.Role)
	assert.True(t, Config.MultiProcess)
	assert.Equal(t, 25, Config.RedisSyncMs)
	assert.Equal(t, "warn", Config.LogLevel)
	assert.True(t, Config.IsClient())
}

func TestEnvBadValue(t *testing.T) {
	t.Setenv("WINTIMER_USE_SYSTEM_CLOCK", "maybe")
	assert.Error(t, LoadConfig("", LoadFromEnv))

	t.Setenv("WINTIMER_USE_SYSTEM_CLOCK", "1")
	t.Setenv("WINTIMER_LOCK_TTL_MS", "x")
	assert.Error(t, LoadConfig("", LoadFromEnv))
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "none.json"), nil))
}
