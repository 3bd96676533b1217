package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr string

	// Logging
	Env      string
	LogLevel string

	// Wall-clock zone for the time-of-day rules
	Timezone string

	// ML Model Configuration
	FireModelPath      string
	OccupancyModelPath string
	PowerModelPath     string

	// Prediction history ("", "clickhouse", "postgres", "sqlite")
	HistoryBackend string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Postgres / SQLite Configuration
	PostgresURL string
	SQLitePath  string

	// MQTT Configuration
	MQTTEnabled       bool
	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopicSnapshot string
	MQTTTopicAlert    string

	// Alert loop gating
	AlertMinInterval    time.Duration
	AlertRepeatInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// HTTP Configuration ($PORT is set by most PaaS hosts)
		HTTPAddr: getEnv("HTTP_ADDR", ":"+getEnv("PORT", "3000")),

		// Logging
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Timezone: getEnv("TIMEZONE", "Local"),

		// ML Model Configuration
		FireModelPath:      getEnv("FIRE_MODEL_PATH", "./model/fire_model.json"),
		OccupancyModelPath: getEnv("OCCUPANCY_MODEL_PATH", "./model/occupancy_model.json"),
		PowerModelPath:     getEnv("POWER_MODEL_PATH", "./model/power_model.json"),

		HistoryBackend: getEnv("HISTORY_BACKEND", ""),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "smarthome"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// Postgres / SQLite Configuration
		PostgresURL: getEnv("POSTGRES_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "./predictions.db"),

		// MQTT Configuration
		MQTTEnabled:       getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:        getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "fire-prediction-api"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		MQTTTopicSnapshot: getEnv("MQTT_TOPIC_SNAPSHOT", "smarthome/+/snapshot"),
		MQTTTopicAlert:    getEnv("MQTT_TOPIC_ALERT", "smarthome/{device_id}/alerts"),

		AlertMinInterval:    getEnvDuration("ALERT_MIN_INTERVAL", 5*time.Second),
		AlertRepeatInterval: getEnvDuration("ALERT_REPEAT_INTERVAL", 1*time.Minute),
	}
}

// Location resolves Timezone, falling back to the local zone
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Warning: unknown TIMEZONE %q, using local time: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return duration
}
