package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LayoutFile  string
	LotWidth    int
	LotHeight   int
	OTelConfig  OTelConfig
}

type OTelConfig struct {
	ServiceName    string
	OTLPEndpoint   string
	MetricInterval time.Duration
}

// Load reads .env from the working directory, if present, then the process
// environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Could not load .env file: %v", err)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LayoutFile:  getEnv("LAYOUT_FILE", ""),
		LotWidth:    getEnvInt("LOT_WIDTH", 40),
		LotHeight:   getEnvInt("LOT_HEIGHT", 40),
		OTelConfig: OTelConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "parking-grid"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			MetricInterval: getEnvDuration("METRICS_INTERVAL", 5*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
