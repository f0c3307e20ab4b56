package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "lanlink-core/internal/core/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Second, cfg.Overlay.MonitorInterval)
	assert.Equal(t, []int{7777, 24642}, cfg.Overlay.GamePorts)
	assert.False(t, cfg.Room.IsHost())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Room.Role = "spectator"
	cfg.Overlay.GamePorts = []int{0, 7777}
	cfg.Overlay.PublicServers = []string{"relay.example.com:11010"}
	cfg.API.Listen = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConfigError))

	var result *ValidationResult
	require.True(t, coreerrors.As(err, &result))
	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{
		"log.level", "room.role", "overlay.game_ports[0]", "overlay.public_servers[0]", "api.listen",
	}, fields)
}

func TestValidate_TunOnlyCheckedInFullTunnel(t *testing.T) {
	cfg := Default()
	cfg.Tun.Address = "bad"
	assert.NoError(t, cfg.Validate())

	cfg.Overlay.FullTunnel = true
	assert.Error(t, cfg.Validate())
}

func TestSecret_Masking(t *testing.T) {
	assert.Equal(t, "", Secret("").String())
	assert.Equal(t, "****", Secret("abcd").String())
	assert.Equal(t, "hu****er", Secret("hunter2-hunter").String())

	data, err := json.Marshal(RoomConfig{Name: "r", Secret: "hunter2-hunter"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"secret":"hu****er"`)
	assert.NotContains(t, string(data), "hunter2-hunter")
}

func TestManager_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	m := NewManagerWithPaths(path)

	cfg := Default()
	cfg.Room.Name = "lan-party"
	cfg.Room.Secret = "hunter2-hunter"
	cfg.Room.Role = RoleHost
	cfg.Overlay.FindHostTimeout = 90 * time.Second

	saved, err := m.Save(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "secret: hunter2-hunter")
	assert.Contains(t, string(data), "find_host_timeout: 1m30s")

	loaded, from, err := m.Load("")
	require.NoError(t, err)
	assert.Equal(t, path, from)
	assert.Equal(t, cfg, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestManager_LoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("room:\n  name: lan-party\noverlay:\n  monitor_interval: 5s\n  public_servers: []\n"), 0o600))

	cfg, _, err := NewManagerWithPaths().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lan-party", cfg.Room.Name)
	assert.Equal(t, RoleGuest, cfg.Room.Role)
	assert.Equal(t, 5*time.Second, cfg.Overlay.MonitorInterval)
	assert.Empty(t, cfg.Overlay.PublicServers)
	assert.NotNil(t, cfg.Overlay.PublicServers)
	assert.Equal(t, []int{7777, 24642}, cfg.Overlay.GamePorts)
}

func TestManager_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a", "config.yaml")
	second := filepath.Join(dir, "b", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(second), 0o755))
	require.NoError(t, os.WriteFile(second, []byte("room:\n  name: second\n"), 0o600))

	cfg, from, err := NewManagerWithPaths(first, second).Load("")
	require.NoError(t, err)
	assert.Equal(t, second, from)
	assert.Equal(t, "second", cfg.Room.Name)
}

func TestManager_NoFileUsesDefaults(t *testing.T) {
	cfg, from, err := NewManagerWithPaths(filepath.Join(t.TempDir(), "missing.yaml")).Load("")
	require.NoError(t, err)
	assert.Empty(t, from)
	assert.Equal(t, Default().API.Listen, cfg.API.Listen)
}

func TestManager_ExplicitPathMustExist(t *testing.T) {
	_, _, err := NewManagerWithPaths().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, coreerrors.ErrConfigError)
}

func TestManager_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("room: [unclosed"), 0o600))

	_, _, err := NewManagerWithPaths(path).Load("")
	assert.ErrorIs(t, err, coreerrors.ErrConfigError)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LANLINK_ROOM_NAME":                 "from-env",
		"LANLINK_ROOM_SECRET":               "s3cret",
		"LANLINK_OVERLAY_MONITOR_INTERVAL":  "1s",
		"LANLINK_OVERLAY_GAME_PORTS":        "7777, 25565",
		"LANLINK_OVERLAY_PUBLIC_SERVERS":    "tcp://a:1,udp://b:2",
		"LANLINK_OVERLAY_FULL_TUNNEL":       "true",
		"LANLINK_TUN_MTU":                   "not-a-number",
		"LANLINK_OVERLAY_FIND_HOST_TIMEOUT": "",
	}
	src := envSource{prefix: EnvPrefix, lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	cfg := Default()
	src.loadInto(cfg)

	assert.Equal(t, "from-env", cfg.Room.Name)
	assert.Equal(t, "s3cret", cfg.Room.Secret.Value())
	assert.Equal(t, time.Second, cfg.Overlay.MonitorInterval)
	assert.Equal(t, []int{7777, 25565}, cfg.Overlay.GamePorts)
	assert.Equal(t, []string{"tcp://a:1", "udp://b:2"}, cfg.Overlay.PublicServers)
	assert.True(t, cfg.Overlay.FullTunnel)
	assert.Equal(t, Default().Tun.MTU, cfg.Tun.MTU)
	assert.Zero(t, cfg.Overlay.FindHostTimeout)
}

func TestApplyEnv_Process(t *testing.T) {
	t.Setenv("LANLINK_API_LISTEN", "127.0.0.1:1234")
	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, "127.0.0.1:1234", cfg.API.Listen)
}
