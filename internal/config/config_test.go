package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FUNCTIONS_CUSTOMHANDLER_PORT", "PORT", "APP_ENV", "LOG_LEVEL",
		"STORAGE_BACKEND", "PDFProcessorSTORAGE", "PDFProcessorSTORAGE__serviceUri",
		"STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY", "STORAGE_USE_SSL",
		"STORAGE_ENSURE_CONTAINERS", "FUNCTIONS_OUTPUT_MODE",
	} {
		t.Setenv(key, "")
	}
	// Run from an empty directory so a developer's .env does not leak in.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendAzure, cfg.StorageBackend)
	assert.Equal(t, OutputClient, cfg.OutputMode)
	assert.Empty(t, cfg.StorageConnection)
	assert.False(t, cfg.StorageUseSSL)
	assert.False(t, cfg.EnsureContainers)
	assert.False(t, cfg.DotEnvLoaded)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_CustomHandlerPortWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	assert.Equal(t, "9000", Load().Port)

	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	assert.Equal(t, "7071", Load().Port)
}

func TestLoad_StorageSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("PDFProcessorSTORAGE__serviceUri", "https://acct.blob.core.windows.net")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("STORAGE_ENSURE_CONTAINERS", "true")
	t.Setenv("FUNCTIONS_OUTPUT_MODE", "Binding")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, BackendMinio, cfg.StorageBackend)
	assert.Equal(t, "https://acct.blob.core.windows.net", cfg.StorageServiceURI)
	assert.True(t, cfg.StorageUseSSL)
	assert.True(t, cfg.EnsureContainers)
	assert.Equal(t, OutputBinding, cfg.OutputMode)
	assert.True(t, cfg.IsProduction())
}
