package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	JWTSecret   string
	Port        string
	Environment string
	StoreDriver string
	LogLevel    string
	LogFormat   string
	// Security configuration
	AllowedOrigins  string
	TrustedProxies  string
	EnableRateLimit bool
	MaxRequestSize  int64
	// Due-scanner configuration
	ScannerEnabled     bool
	ScannerInterval    time.Duration
	ScannerGracePeriod time.Duration
	ScannerBatchLimit  int
	RedisURL           string
	// Underwriting and scheduling defaults
	DefaultInvestorMultiplier float64
	DefaultReminderOffsets    []int
}

// New creates a new configuration instance from environment variables
func New() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		// Security configuration
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),
		TrustedProxies:  getEnv("TRUSTED_PROXIES", ""),
		EnableRateLimit: getEnv("ENABLE_RATE_LIMIT", "true") == "true",
		MaxRequestSize:  getEnvAsInt64("MAX_REQUEST_SIZE", 10*1024*1024), // 10MB default
		// Due-scanner configuration
		ScannerEnabled:     getEnv("SCANNER_ENABLED", "true") == "true",
		ScannerInterval:    time.Duration(getEnvAsInt("SCANNER_INTERVAL_SECONDS", 60)) * time.Second,
		ScannerGracePeriod: time.Duration(getEnvAsInt("SCANNER_GRACE_MINUTES", 15)) * time.Minute,
		ScannerBatchLimit:  getEnvAsInt("SCANNER_BATCH_LIMIT", 200),
		RedisURL:           getEnv("REDIS_URL", ""),
		// Underwriting and scheduling defaults
		DefaultInvestorMultiplier: getEnvAsFloat("DEFAULT_INVESTOR_MULTIPLIER", 0.70),
		DefaultReminderOffsets:    getEnvAsIntList("DEFAULT_REMINDER_OFFSETS", []int{-60, -15}),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesMemoryStore reports whether the process-local store was selected
func (c *Config) UsesMemoryStore() bool {
	return c.StoreDriver == "memory"
}

// HasRedis returns true if a redis endpoint is configured for the scanner lock
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsIntList parses a comma-separated list such as "-60,-15".
// Any malformed entry makes the whole value fall back to the default.
func getEnvAsIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

// GetAllowedOrigins returns a slice of allowed CORS origins
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigins == "" {
		return []string{}
	}
	return strings.Split(c.AllowedOrigins, ",")
}

// GetTrustedProxies returns a slice of trusted proxy IPs
func (c *Config) GetTrustedProxies() []string {
	if c.TrustedProxies == "" {
		return []string{} // No trusted proxies by default
	}
	return strings.Split(c.TrustedProxies, ",")
}
