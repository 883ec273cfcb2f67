package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
timezone: Europe/Berlin
horizon_days: 30
school_year_start_month: 13
requests_per_second: 500
basic_auth:
  username: ""
  password: ""
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Equal(t, 9, cfg.SchoolYearStartMonth)
	assert.Equal(t, 50.0, cfg.RequestsPerSecond)
	assert.Equal(t, "*/30 * * * *", cfg.RefreshCron)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = ":9000"
	cfg.BasicAuth = &BasicAuthConfig{Username: "parent", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", loaded.Listen)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "parent", loaded.BasicAuth.Username)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Warsaw", loc.String())

	cfg.Timezone = "Mars/Olympus"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestResolveTokenPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/etc/vulcancal", "eduvulcan_token.json"), cfg.ResolveTokenPath("/etc/vulcancal/config.yaml"))

	cfg.TokenPath = "/var/lib/token.json"
	assert.Equal(t, "/var/lib/token.json", cfg.ResolveTokenPath("/etc/vulcancal/config.yaml"))
}
