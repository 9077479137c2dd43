// Package config loads the engine's runtime configuration from the
// environment.
package config

import "os"

// Config holds the settings the demo binary and deployments read at
// startup.
type Config struct {
	// MongoURI is the document-store connection string.
	MongoURI string
	// MongoDatabase is the database holding schema definitions and
	// dynamic collections.
	MongoDatabase string
	// TenantDBPath is the SQLite file backing the tenant directory.
	TenantDBPath string
	// LogLevel selects the zap level: debug, info, warn, or error.
	LogLevel string
}

// LoadConfig reads configuration from environment variables, applying
// defaults suitable for local development.
func LoadConfig() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "dyndocs"),
		TenantDBPath:  getEnv("TENANT_DB_PATH", "tenants.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv returns the variable's value or a fallback when unset or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
