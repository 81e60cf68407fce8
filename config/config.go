package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Port        string
	FrontendURL string

	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	Dashboard  DashboardConfig
}

type PostgresConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ClickHouseConfig configures the optional raw page-view event log.
// The event pipeline is disabled entirely when Host is empty.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type DashboardConfig struct {
	// RefreshInterval is the suggested dashboard polling interval,
	// clamped to a 1 second minimum.
	RefreshInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FE_ORIGIN", "http://localhost:3000"),
	}

	cfg.Postgres = PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnv("POSTGRES_PORT", "5432"),
		Database:        getEnv("POSTGRES_DB", "webanalytics"),
		Username:        getEnv("POSTGRES_USER", "postgres"),
		Password:        getEnv("POSTGRES_PASSWORD", "password"),
		SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	cfg.ClickHouse = ClickHouseConfig{
		Host:     getEnv("CLICKHOUSE_HOST", ""),
		Port:     getEnvAsInt("CLICKHOUSE_NATIVE_PORT", 9000),
		Database: getEnv("CLICKHOUSE_DB_NAME", "webanalytics"),
		Username: getEnv("CLICKHOUSE_USERNAME", "default"),
		Password: getEnv("CLICKHOUSE_PASSWORD", ""),
	}

	cfg.Auth = AuthConfig{
		JWTSecret: getEnv("JWT_SECRET_KEY", ""),
		TokenTTL:  getEnvAsDuration("JWT_TOKEN_TTL", time.Hour),
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	refresh := getEnvAsDuration("DASHBOARD_REFRESH_INTERVAL", 5*time.Second)
	if refresh < time.Second {
		refresh = time.Second
	}
	cfg.Dashboard = DashboardConfig{RefreshInterval: refresh}

	return cfg, nil
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// EventsEnabled reports whether the ClickHouse page-view log is configured.
func (c *ClickHouseConfig) EventsEnabled() bool {
	return c.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
