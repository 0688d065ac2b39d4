package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SQLPILOT_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "http://localhost:8000", cfg.NLU.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlpilot.yaml")
	content := []byte(`
server:
  port: 9090
nlu:
  base_url: http://nlu.internal:8000
  timeout: 15s
store:
  backend: postgres
  postgres:
    host: db.internal
    database: portal
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("SQLPILOT_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://nlu.internal:8000", cfg.NLU.BaseURL)
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, "db.internal", cfg.Store.Postgres.Host)
	assert.Equal(t, "portal", cfg.Store.Postgres.Database)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SQLPILOT_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("SQLPILOT_SERVER_PORT", "7070")
	t.Setenv("SQLPILOT_NLU_BASE_URL", "http://override:8000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://override:8000", cfg.NLU.BaseURL)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		NLU:    NLUConfig{BaseURL: "http://localhost:8000"},
		Store:  StoreConfig{Backend: "dynamo"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestValidateRequiresPostgresHost(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		NLU:    NLUConfig{BaseURL: "http://localhost:8000"},
		Store:  StoreConfig{Backend: StorePostgres},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires host and database")
}
