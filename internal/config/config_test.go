package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/identity"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rentledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	interval, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, "monthly", interval.String())
	assert.Equal(t, authz.DefaultGuard(), cfg.Guard())
	assert.Equal(t, "VND", cfg.Currencies().Default)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
ledger:
  path: /var/lib/rentledger/ledger.db
authz:
  privileged_orgs: [RegulatorMSP]
  enrollment_attribute: enrollment.id
contract:
  currencies: [USD, EUR]
  default_currency: USD
schedule:
  interval: 720h
events:
  mqtt:
    broker: tcp://localhost:1883
    timeout: 2s
log:
  format: console
`)
	t.Setenv("RENTLEDGER_LOG_LEVEL", "debug")
	t.Setenv("RENTLEDGER_DB", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Ledger.Path, "env wins over the file")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"RegulatorMSP"}, cfg.Authz.PrivilegedOrgs)
	assert.Equal(t, []string{"admin", "regulator"}, cfg.Authz.PrivilegedRoles, "unset keys keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Events.MQTT.Timeout)

	interval, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, "720h0m0s", interval.String())

	guard := cfg.Guard()
	assert.Equal(t, identity.Resolver{EnrollmentAttribute: "enrollment.id"}, guard.Resolver)
	assert.True(t, guard.IsPrivileged(identity.NewUser("RegulatorMSP", "reg")))
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "ledger:\n  file: x.db\n", "field file not found"},
		{"bad log level", "log:\n  level: chatty\n", "invalid config"},
		{"lowercase currency", "contract:\n  currencies: [usd]\n  default_currency: USD\n", "invalid config"},
		{"empty currency list", "contract:\n  currencies: []\n", "invalid config"},
		{"default not allowed", "contract:\n  currencies: [USD]\n  default_currency: EUR\n", "contract"},
		{"qos out of range", "events:\n  mqtt:\n    qos: 3\n", "invalid config"},
		{"bad interval", "schedule:\n  interval: fortnightly\n", "schedule.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Ledger, cfg.Ledger)
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Gateway.JWTSecret = "hunter2"
	cfg.Events.Redis.Password = "redis-pass"

	out := cfg.String()
	assert.False(t, strings.Contains(out, "hunter2"))
	assert.False(t, strings.Contains(out, "redis-pass"))
	assert.Contains(t, out, "****")
	assert.Equal(t, "hunter2", cfg.Gateway.JWTSecret, "String does not modify the config")
}
