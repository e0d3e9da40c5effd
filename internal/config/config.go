package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// State backends
const (
	StateBackendMemory   = "memory"
	StateBackendPostgres = "postgres"
	StateBackendRedis    = "redis"
)

// Database drivers
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration (BFF)
	Server ServerConfig

	// Remote booking API configuration
	API APIConfig

	// Client state persistence
	State StateConfig

	// Database configuration (postgres state backend)
	Database DatabaseConfig

	// Redis configuration (redis state backend)
	Redis RedisConfig

	// Booking workflow defaults
	Booking BookingConfig

	// Scheduled jobs
	Jobs JobsConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// APIConfig holds the remote REST backend settings
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// StateConfig selects where tokens, the user profile and the recent booking live
type StateConfig struct {
	Backend   string // memory, postgres, redis
	Namespace string // one namespace per logical user/device
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver             string // pgx or postgres (lib/pq)
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // 0 keeps keys until deleted
}

// BookingConfig holds workflow defaults
type BookingConfig struct {
	DefaultSeatCapacity   int
	DefaultPaymentMethod  string
	DefaultPaymentGateway string
}

// JobsConfig holds cron schedules (seconds precision)
type JobsConfig struct {
	Enabled                   bool
	TokenRefreshSchedule      string
	TokenRefreshSkew          time.Duration
	BookingRevalidateSchedule string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3001"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL:   strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api/v1"), "/"),
			Timeout:   time.Duration(getEnvAsInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
			UserAgent: getEnv("API_USER_AGENT", "busticket-client/1.0"),
		},
		State: StateConfig{
			Backend:   strings.ToLower(getEnv("STATE_BACKEND", StateBackendMemory)),
			Namespace: getEnv("STATE_NAMESPACE", "default"),
		},
		Database: DatabaseConfig{
			Driver:             strings.ToLower(getEnv("DATABASE_DRIVER", DriverPgx)),
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 5),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 2),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_ADDRESS", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "busticket"),
			TTL:       getEnvAsDuration("REDIS_TTL", 0),
		},
		Booking: BookingConfig{
			DefaultSeatCapacity:   getEnvAsInt("DEFAULT_SEAT_CAPACITY", 50),
			DefaultPaymentMethod:  strings.ToUpper(getEnv("DEFAULT_PAYMENT_METHOD", "UPI")),
			DefaultPaymentGateway: strings.ToUpper(getEnv("DEFAULT_PAYMENT_GATEWAY", "INTERNAL")),
		},
		Jobs: JobsConfig{
			Enabled:                   getEnvAsBool("JOBS_ENABLED", true),
			TokenRefreshSchedule:      getEnv("JOB_TOKEN_REFRESH_SCHEDULE", "0 */1 * * * *"),
			TokenRefreshSkew:          getEnvAsDuration("JOB_TOKEN_REFRESH_SKEW", 2*time.Minute),
			BookingRevalidateSchedule: getEnv("JOB_BOOKING_REVALIDATE_SCHEDULE", "0 */5 * * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT_SECONDS must be positive")
	}

	switch c.State.Backend {
	case StateBackendMemory:
	case StateBackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres state backend")
		}
		if c.Database.Driver != DriverPgx && c.Database.Driver != DriverPostgres {
			return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'pgx' or 'postgres')", c.Database.Driver)
		}
	case StateBackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis state backend")
		}
	default:
		return fmt.Errorf("invalid STATE_BACKEND: %s (must be 'memory', 'postgres' or 'redis')", c.State.Backend)
	}

	if c.State.Namespace == "" {
		return fmt.Errorf("STATE_NAMESPACE cannot be empty")
	}

	if c.Booking.DefaultSeatCapacity <= 0 {
		return fmt.Errorf("DEFAULT_SEAT_CAPACITY must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("90s", "2m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
