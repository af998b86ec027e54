package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the gateway. It is constructed once
// at startup and never mutated afterwards.
type Config struct {
	Port       int
	Version    string
	Database   DatabaseConfig
	Keycloak   KeycloakConfig
	Clementine ClementineConfig
	Telemetry  TelemetryConfig
}

type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty selects the in-memory
	// registry (zero-config mode).
	URL            string
	MigrationsPath string
}

// KeycloakConfig describes the external identity provider. When Enabled
// is false every request resolves to the anonymous principal and all
// authorization checks pass.
type KeycloakConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Realm    string
	ClientID string
}

// URL returns the identity provider's base address.
func (k KeycloakConfig) URL() string {
	return k.Host + ":" + strconv.Itoa(k.Port)
}

type ClementineConfig struct {
	// URL is the base address of the integration subsystem.
	URL string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("GATEWAY_PORT", 3000),
		Version: envStr("GATEWAY_VERSION", "0.1.0"),
		Database: DatabaseConfig{
			URL:            envStr("GATEWAY_DATABASE_URL", ""),
			MigrationsPath: envStr("GATEWAY_MIGRATIONS_PATH", "db/migrations"),
		},
		Keycloak: KeycloakConfig{
			Enabled:  envBool("GATEWAY_USE_KEYCLOAK", false),
			Host:     envStr("GATEWAY_KEYCLOAK_HOST", "http://localhost"),
			Port:     envInt("GATEWAY_KEYCLOAK_PORT", 8080),
			Realm:    envStr("GATEWAY_KEYCLOAK_REALM", "botgrid"),
			ClientID: envStr("GATEWAY_KEYCLOAK_CLIENT", "gateway"),
		},
		Clementine: ClementineConfig{
			URL: envStr("GATEWAY_CLEMENTINE_URL", "http://localhost:7050"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "botgrid-gateway"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
