package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
port: "8081"
dbURI: postgres://localhost:5432
dbName: library
jwtSecret: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "library", cfg.DBName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 5, cfg.DBConnectAttempts)
	assert.NoError(t, cfg.ValidateCatalog())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "port: \"8081\"\ndbName: library\n")
	t.Setenv("DB_NAME", "library_test")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("CATALOG_SERVICE_URL", "http://catalog:8081")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "library_test", cfg.DBName)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "http://catalog:8081", cfg.CatalogURL)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidateCatalog_ListsMissing(t *testing.T) {
	err := Config{Port: "8081"}.ValidateCatalog()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URI")
	assert.Contains(t, err.Error(), "DB_NAME")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateWeb(t *testing.T) {
	assert.NoError(t, Config{Port: "8080", CatalogURL: "http://localhost:8081"}.ValidateWeb())
	assert.Error(t, Config{Port: "8080"}.ValidateWeb())
	assert.Error(t, Config{Port: "8080", CatalogURL: "x", PageSize: -1}.ValidateWeb())
}
