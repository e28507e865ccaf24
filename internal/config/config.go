package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	ServerPort int
	GinMode    string

	// Relational store
	DBType      string // "postgres" or "memory"
	DatabaseURL string

	// InfluxDB telemetry store
	InfluxURL      string
	InfluxToken    string
	InfluxDatabase string

	// Redis weather cache
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	WeatherCacheTTL time.Duration

	// PVGIS endpoint override, mainly for tests
	PVGISBaseURL string

	// Kafka alert events
	KafkaBrokers []string
	KafkaTopic   string

	// MQTT field ingest
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Telemetry batching
	BatchSize     int
	BatchInterval int // milliseconds

	// Logging
	LogLevel string
	LogDir   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8000),
		GinMode:    getEnv("GIN_MODE", "debug"),

		DBType:      getEnv("DB_TYPE", "memory"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// InfluxDB
		InfluxURL:      getEnv("INFLUXDB_URL", ""),
		InfluxToken:    getEnv("INFLUXDB_TOKEN", ""),
		InfluxDatabase: getEnv("INFLUXDB_DATABASE", "heliotelligence"),

		// Redis
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		WeatherCacheTTL: time.Duration(getEnvInt("WEATHER_CACHE_TTL", 86400)) * time.Second,

		PVGISBaseURL: getEnv("PVGIS_BASE_URL", ""),

		// Kafka
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "performance-alerts"),

		// MQTT
		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "heliotelligence-ingest"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// Batching
		BatchSize:     getEnvInt("BATCH_SIZE", 100),
		BatchInterval: getEnvInt("BATCH_INTERVAL", 200),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogDir:   getEnv("LOG_DIRECTORY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.DBType != "postgres" && c.DBType != "memory" {
		return fmt.Errorf("invalid DB_TYPE: %s (use 'postgres' or 'memory')", c.DBType)
	}

	if c.DBType == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DB_TYPE=postgres requires DATABASE_URL")
	}

	if c.DBType == "postgres" && c.InfluxURL == "" {
		return fmt.Errorf("DB_TYPE=postgres requires INFLUXDB_URL for the telemetry store")
	}

	if c.BatchSize < 1 || c.BatchSize > 10000 {
		return fmt.Errorf("invalid BATCH_SIZE: %d (must be 1-10000)", c.BatchSize)
	}

	if c.BatchInterval < 50 || c.BatchInterval > 5000 {
		return fmt.Errorf("invalid BATCH_INTERVAL: %d (must be 50-5000ms)", c.BatchInterval)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
