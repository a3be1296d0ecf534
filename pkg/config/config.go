package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// DefaultUser owns watchlists/portfolios when no X-User header is sent
	DefaultUser string

	Database DatabaseConfig
	Redis    RedisConfig

	// Upstream data sources
	AlphaVantage AlphaVantageConfig
	TWSE         ExchangeConfig
	TPEx         ExchangeConfig

	Realtime RealtimeConfig

	// ScheduleFile optionally overrides job schedules (YAML)
	ScheduleFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AlphaVantageConfig holds the quote API settings.
// RequestsPerMinute feeds the token bucket in pkg/httputil.
type AlphaVantageConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

// ExchangeConfig describes one Taiwan data source: where to fetch from,
// how fast, and the local trading window ("HH:MM").
type ExchangeConfig struct {
	BaseURL           string
	QuoteURL          string
	RequestsPerSecond float64
	Open              string
	Close             string
}

// RealtimeConfig controls the websocket price broadcast
type RealtimeConfig struct {
	BroadcastInterval time.Duration
	PriceTTL          time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function calling os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Env:         getEnv("ENV", "development"),
		DefaultUser: getEnv("DEFAULT_USER", "JoyWu"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:            getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:           getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			RequestsPerMinute: getEnvAsInt("ALPHA_VANTAGE_RPM", 5),
			Timeout:           getEnvAsDuration("ALPHA_VANTAGE_TIMEOUT", "10s"),
		},

		TWSE: ExchangeConfig{
			BaseURL:           getEnv("TWSE_BASE_URL", "https://www.twse.com.tw"),
			QuoteURL:          getEnv("TWSE_QUOTE_URL", "https://mis.twse.com.tw"),
			RequestsPerSecond: getEnvAsFloat("TWSE_RPS", 0.5),
			Open:              getEnv("TWSE_OPEN", "09:00"),
			Close:             getEnv("TWSE_CLOSE", "13:30"),
		},

		TPEx: ExchangeConfig{
			BaseURL:           getEnv("TPEX_BASE_URL", "https://www.tpex.org.tw"),
			RequestsPerSecond: getEnvAsFloat("TPEX_RPS", 0.5),
			Open:              getEnv("TPEX_OPEN", "09:00"),
			Close:             getEnv("TPEX_CLOSE", "13:30"),
		},

		Realtime: RealtimeConfig{
			BroadcastInterval: getEnvAsDuration("WS_BROADCAST_INTERVAL", "3s"),
			PriceTTL:          getEnvAsDuration("WS_PRICE_TTL", "1m"),
		},

		ScheduleFile: getEnv("SCHEDULE_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	for name, hm := range map[string]string{
		"TWSE_OPEN":  c.TWSE.Open,
		"TWSE_CLOSE": c.TWSE.Close,
		"TPEX_OPEN":  c.TPEx.Open,
		"TPEX_CLOSE": c.TPEx.Close,
	} {
		if _, _, err := ParseClock(hm); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.AlphaVantage.RequestsPerMinute <= 0 {
		return fmt.Errorf("ALPHA_VANTAGE_RPM must be positive")
	}

	return nil
}

// ParseClock parses a wall-clock "HH:MM" string.
func ParseClock(hm string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(hm), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", hm)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", hm)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", hm)
	}
	return hour, minute, nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
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
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
