package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  env: prod
telegram:
  token: "123:abc"
  admin_chat_id: -100500
postgres:
  dsn: "postgres://u:p@localhost:5432/expo?sslmode=disable"
payments:
  base_url: "https://bot.example"
  poll_interval: 5s
wizard:
  event_id: 2026
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, "Europe/Moscow", c.App.Timezone)
	assert.Equal(t, int64(-100500), c.Telegram.AdminChatID)
	assert.Equal(t, 60, c.Telegram.TimeoutSec)
	assert.Equal(t, 5*time.Second, c.Payments.PollInterval)
	assert.Equal(t, 15*time.Minute, c.Payments.PollTimeout)
	assert.Equal(t, int64(20<<20), c.Storage.MaxBytes)
	assert.Equal(t, int64(2026), c.Wizard.EventID)
	assert.True(t, c.Metrics.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_WIZARD_EVENT_ID", "2027")
	t.Setenv("APP_STORAGE_MAX_BYTES", "1024")

	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, int64(2027), c.Wizard.EventID)
	assert.Equal(t, int64(1024), c.Storage.MaxBytes)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  env: dev\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")

	c, err := Load(writeConfig(t, "postgres:\n  dsn: x\n"))
	require.NoError(t, err)
	assert.Error(t, c.RequireEvent())
}
