package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
session:
  backend: redis
  idle_timeout: 10m
  history_cap: 5
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
timeouts:
  lookup: 2s
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 5, cfg.Session.HistoryCap)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval, "unset keys keep their default")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Lookup)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "session:\n  backend: file\n")
	cfg, err := Load(path, []string{
		"INTAKE_SESSION_BACKEND=memory",
		"INTAKE_SESSION_IDLE_TIMEOUT=45s",
		"INTAKE_ROUTER_RETRY_CAP=5",
		"INTAKE_KAFKA_BROKERS=a:9092,b:9092",
		"INTAKE_SERVER_VERIFY_TOKEN=s3cret",
		"PATH=/usr/bin",
		"INTAKE_NOSECTION=1",
	})
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 45*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, 5, cfg.Router.RetryCap)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "s3cret", cfg.Server.VerifyToken)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "session:\n  backnd: redis\n")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "backnd")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Session.Backend = "etcd"
	cfg.Session.HistoryCap = 0
	cfg.Database.Driver = "mysql"
	cfg.SMTP.Host = "smtp.example"
	cfg.Router.IdleReminder = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"session.backend", "session.history_cap", "database.driver", "smtp.from", "router.idle_reminder"} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %q", want, msg)
	}
}

func TestSessionConfig_Key(t *testing.T) {
	k, err := SessionConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, k)

	raw := make([]byte, 32)
	k, err = SessionConfig{EncryptionKey: base64.StdEncoding.EncodeToString(raw)}.Key()
	require.NoError(t, err)
	assert.Len(t, k, 32)

	_, err = SessionConfig{EncryptionKey: base64.StdEncoding.EncodeToString(raw[:16])}.Key()
	assert.ErrorContains(t, err, "want 32")
}
