package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.NotEmpty(t, cfg.Servers)
	assert.Equal(t, 10000, cfg.UI.MaxScrollback)
	assert.True(t, cfg.DCC.RejectPrivateIPs)
	assert.Equal(t, uint64(3), cfg.Behavior.RejoinDelaySecs)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := Default()
	want.Servers = []Server{{
		Name:         "testnet",
		Host:         "irc.example.org",
		Port:         6667,
		TLS:          false,
		Nickname:     "alice",
		NickPassword: "hunter2",
		AltNicks:     []string{"alice_", "alice__"},
		Channels:     []string{"#go", "#irc"},
		AutoConnect:  true,
	}}
	want.DCC.MaxFileSize = 2048
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Servers, got.Servers)
	assert.Equal(t, uint64(2048), got.DCC.MaxFileSize)
}

func TestLoadFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
[[servers]]
name = "min"
host = "irc.example.org"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "15:04", cfg.UI.TimestampFormat)
	assert.Equal(t, 10000, cfg.UI.MaxScrollback)
	assert.Equal(t, 6697, cfg.Servers[0].Port)
	assert.True(t, cfg.Servers[0].TLS)
}

func TestFindServer(t *testing.T) {
	cfg := Default()

	got, ok := cfg.FindServer("LIBERA")
	require.True(t, ok)
	assert.Equal(t, "irc.libera.chat", got.Host)

	_, ok = cfg.FindServer("nope")
	assert.False(t, ok)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("servers = {{"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
