// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Container names are fixed by the deployment; they are not configurable.
const (
	SourceContainer      = "unprocessed-pdf"
	DestinationContainer = "processed-pdf"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendAzure  = "azure"
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

// Output modes accepted by FUNCTIONS_OUTPUT_MODE.
const (
	OutputClient  = "client"
	OutputBinding = "binding"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// DotEnvLoaded reports whether a .env file was read.
	DotEnvLoaded bool

	StorageBackend string

	// Azure Blob Storage: a connection string or service URL, with the
	// Functions identity-based suffix as fallback.
	StorageConnection string
	StorageServiceURI string

	// S3-compatible storage (MinIO locally).
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageUseSSL    bool

	EnsureContainers bool
	OutputMode       string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	loaded := godotenv.Load() == nil

	return &Config{
		Port:     getEnv("FUNCTIONS_CUSTOMHANDLER_PORT", getEnv("PORT", "8080")),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DotEnvLoaded: loaded,

		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", BackendAzure)),
		StorageConnection: getEnv("PDFProcessorSTORAGE", ""),
		StorageServiceURI: getEnv("PDFProcessorSTORAGE__serviceUri", ""),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",

		EnsureContainers: getEnv("STORAGE_ENSURE_CONTAINERS", "false") == "true",
		OutputMode:       strings.ToLower(getEnv("FUNCTIONS_OUTPUT_MODE", OutputClient)),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
