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

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Live vehicle tracking database
	Database DatabaseConfig

	// Stop geometry database; falls back to Database when no URL is set
	Geometry DatabaseConfig

	// JWT configuration for admin endpoints
	JWT JWTConfig

	// Snapshot refresh configuration
	Refresh RefreshConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Feeds to index, loaded from Refresh.FeedsFile
	Feeds []FeedConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver             string // postgres, pgx, sqlite
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// RefreshConfig controls how and when feeds are rebuilt
type RefreshConfig struct {
	Schedule     string // robfig/cron spec, seconds field enabled
	Concurrency  int    // feeds fetched in parallel
	FetchTimeout time.Duration
	FeedsFile    string
	RunOnStartup bool

	// Manual refresh limits; zero disables a limit
	ManualMaxPerOperator int
	ManualMaxPerIP       int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
}

var supportedDrivers = map[string]bool{
	"postgres": true,
	"pgx":      true,
	"sqlite":   true,
}

// Load loads configuration from environment variables and the feeds file
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := FromEnv()

	feeds, err := LoadFeeds(config.Refresh.FeedsFile)
	if err != nil {
		return nil, err
	}
	config.Feeds = feeds

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv builds the configuration from the process environment without reading any files
func FromEnv() *Config {
	database := DatabaseConfig{
		Driver:             getEnv("DATABASE_DRIVER", "postgres"),
		URL:                getEnv("DATABASE_URL", ""),
		MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
		MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
	}

	geometry := database
	if url := getEnv("GEOMETRY_DATABASE_URL", ""); url != "" {
		geometry.URL = url
		geometry.Driver = getEnv("GEOMETRY_DATABASE_DRIVER", database.Driver)
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: database,
		Geometry: geometry,
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("JWT_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Refresh: RefreshConfig{
			Schedule:     getEnv("REFRESH_SCHEDULE", "@every 15m"),
			Concurrency:  getEnvAsInt("REFRESH_CONCURRENCY", 4),
			FetchTimeout: time.Duration(getEnvAsInt("FEED_FETCH_TIMEOUT_SECONDS", 60)) * time.Second,
			FeedsFile:    getEnv("FEEDS_CONFIG", "feeds.yml"),
			RunOnStartup: getEnvAsBool("REFRESH_ON_STARTUP", true),

			ManualMaxPerOperator: getEnvAsInt("ADMIN_REFRESH_MAX_PER_OPERATOR", 6),
			ManualMaxPerIP:       getEnvAsInt("ADMIN_REFRESH_MAX_PER_IP", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Request-ID"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if !supportedDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'postgres', 'pgx' or 'sqlite')", c.Database.Driver)
	}

	if !supportedDrivers[c.Geometry.Driver] {
		return fmt.Errorf("invalid GEOMETRY_DATABASE_DRIVER: %s (must be 'postgres', 'pgx' or 'sqlite')", c.Geometry.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Refresh.Concurrency < 1 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be at least 1")
	}

	if c.Refresh.FetchTimeout <= 0 {
		return fmt.Errorf("FEED_FETCH_TIMEOUT_SECONDS must be positive")
	}

	if len(c.Feeds) == 0 {
		return fmt.Errorf("at least one feed must be configured in %s", c.Refresh.FeedsFile)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
