package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"server": { "addr": ":8080" },
		"db": { "host": "10.0.0.1", "port": "5433" },
		"upload": { "strategy": "cloud", "cloud": { "url": "https://store.example.com/upload", "preset": "markers" } }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puntomapa.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, ":8080", GetServerConfig().Addr)
	assert.Equal(t, "10.0.0.1", GetDatabaseConfig().Host)
	assert.Equal(t, "5433", GetDatabaseConfig().Port)

	uc := GetUploadConfig()
	assert.Equal(t, "cloud", uc.Strategy)
	assert.Equal(t, "https://store.example.com/upload", uc.Cloud.URL)
	assert.Equal(t, "markers", uc.Cloud.Preset)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puntomapa.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, ":4000", GetServerConfig().Addr)
	assert.Equal(t, 10*time.Second, GetServerConfig().ShutdownTimeout)
	assert.Equal(t, "localhost", GetDatabaseConfig().Host)
	assert.Equal(t, "puntomapa", GetDatabaseConfig().Database)
	assert.Equal(t, "./puntomapa.db", GetDatabaseConfig().SqlitePath)

	uc := GetUploadConfig()
	assert.Equal(t, "local", uc.Strategy)
	assert.Equal(t, "./uploads", uc.Local.Dir)
	assert.Equal(t, "http://localhost:4000", uc.Local.BaseURL)

	assert.False(t, GetWizardConfig().RequireMedia)
	assert.False(t, GetInfluxConfig().Enabled)
	assert.Equal(t, "puntomapa-metrics", GetInfluxConfig().Org)
	assert.False(t, GetGraylogConfig().Enabled)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestGetWizardConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{ "wizard": { "requireMedia": true } }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puntomapa.cfg.json"), []byte(cfg), 0644))

	require.NoError(t, Load(dir))
	assert.True(t, GetWizardConfig().RequireMedia)
}
