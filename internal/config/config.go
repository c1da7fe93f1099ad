package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	JWT      JWTConfig
	App      AppConfig
	QR       QRConfig
	Scan     ScanConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// StorageConfig selects the record store driver: "postgres" or "memory".
type StorageConfig struct {
	Driver        string
	RunMigrations bool
	SeedFixtures  bool
}

// JWTConfig holds the secret used for station and issuer tokens
type JWTConfig struct {
	Secret            string
	StationExpiration string
	IssuerExpiration  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

// QRConfig controls scan token signing and verification.
type QRConfig struct {
	Secret         string
	ValidityWindow time.Duration
	ReplayGuard    bool
}

type ScanConfig struct {
	DebounceWindow time.Duration
	StoreTimeout   time.Duration
}

type CacheConfig struct {
	ProfileTTL           time.Duration
	HousekeepingInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "qr_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
	}

	config.Storage = StorageConfig{
		Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
		SeedFixtures:  getEnvBool("SEED_FIXTURES", false),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:            getEnv("JWT_SECRET_KEY", ""),
		StationExpiration: getEnv("JWT_STATION_EXPIRATION_TIME", "720h"),
		IssuerExpiration:  getEnv("JWT_ISSUER_EXPIRATION_TIME", "12h"),
	}

	// QR token configuration
	config.QR = QRConfig{
		Secret:         getEnv("QR_SECRET", ""),
		ValidityWindow: getEnvDuration("QR_VALIDITY_WINDOW", 20*time.Second),
		ReplayGuard:    getEnvBool("QR_REPLAY_GUARD", false),
	}

	config.Scan = ScanConfig{
		DebounceWindow: getEnvDuration("SCAN_DEBOUNCE_WINDOW", 2*time.Second),
		StoreTimeout:   getEnvDuration("SCAN_STORE_TIMEOUT", 3*time.Second),
	}

	config.Cache = CacheConfig{
		ProfileTTL:           getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		HousekeepingInterval: getEnvDuration("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: postgres, memory")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.QR.Secret == "" {
		return fmt.Errorf("QR_SECRET is required")
	}
	if c.QR.ValidityWindow <= 0 {
		return fmt.Errorf("QR_VALIDITY_WINDOW must be positive")
	}
	if c.Scan.StoreTimeout <= 0 {
		return fmt.Errorf("SCAN_STORE_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
