package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "airtable:\n  base_id: appTest\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.airtable.com/v0", cfg.Airtable.BaseURL)
	assert.Equal(t, "Reservation", cfg.Airtable.Collection)
	assert.Equal(t, 100, cfg.Airtable.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Airtable.Timeout)
	assert.Equal(t, 10, cfg.Dashboard.Tables)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, time.Second, cfg.Dashboard.ClockInterval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "dashboard.db", cfg.Database.DSN)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "patFromEnv")
	t.Setenv("AIRTABLE_BASE_ID", "appFromEnv")
	path := writeConfig(t, "airtable:\n  base_id: appFromFile\n  token: patFromFile\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "patFromEnv", cfg.Airtable.Token)
	assert.Equal(t, "appFromEnv", cfg.Airtable.BaseID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDashboardConfig_Location(t *testing.T) {
	assert.Equal(t, time.Local, DashboardConfig{}.Location())
	assert.Equal(t, time.Local, DashboardConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", DashboardConfig{Timezone: "UTC"}.Location().String())
}
