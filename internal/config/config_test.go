package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "foundermatch/pkg/config"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
storage:
  driver: postgres
mq:
  url: ${FM_CFG_TEST_MQ}
jwt:
  secret: ${FM_CFG_TEST_SECRET}
outbox:
  batch_size: 10
`)
	writeConfig(t, dir, "dev.yaml", `
storage:
  driver: memory
`)
	t.Setenv("FM_CFG_TEST_SECRET", "s3cret")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load("dev", dir)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Empty(t, cfg.MQ.URL, "unresolved placeholders disable optional services")
	assert.Equal(t, 10, cfg.Outbox.BatchSize)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowOrigins)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
jwt:
  secret: ${FM_CFG_TEST_MISSING}
`)
	_, err := Load("local", dir)
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestValidateStorageDriver(t *testing.T) {
	cfg := &Config{Env: "production", JWT: pkgconfig.JWTConfig{Secret: "x"}, Storage: StorageConfig{Driver: "memory"}}
	assert.Error(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	cfg.Env = "local"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage driver")

	cfg.Storage.Driver = "postgres"
	assert.NoError(t, cfg.Validate())
}
