package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
env: prod
storage_path: postgres://nails@localhost/nails?sslmode=disable
admin:
  password_hash: "$2a$12$abcdefghijklmnopqrstuv"
telegram:
  chat_id: 12345
http_server:
  address: 0.0.0.0:9000
trusted_proxies:
  - 10.0.0.0/8
  - 127.0.0.1
`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
	assert.Equal(t, 168*time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, 10, cfg.Admin.MaxLoginAttempts)
	assert.Equal(t, 300, cfg.Payment.Amount)
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "ADMIN_PASSWORD_HASH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: local\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
