package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token cache backends
const (
	TokenCacheTypeMemory = "memory"
	TokenCacheTypeRedis  = "redis"
)

// Rate limit store backends
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

const defaultHomeGraphURL = "https://homegraph.googleapis.com/v1/devices:requestSync"

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// OAuth client (the voice-assistant platform)
	ClientID             string
	ClientSecret         string
	RedirectURIAllowlist []string
	AuthCodeExpiration   time.Duration

	// Provisioned records
	UsersDirectory   string
	DevicesDirectory string

	// Database (access tokens and audit logs)
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Token validation cache
	TokenCacheType string // "memory" or "redis"
	TokenCacheTTL  time.Duration

	// Redis (token cache and rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Device drivers
	DriverTimeout time.Duration

	// Logging
	LogLevel string
	LogEnv   string // "dev" or "prod"
	LogFile  string // empty = stdout

	// Audit
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// Rate limiting
	EnableRateLimit bool
	RateLimitStore  string
	LoginRateLimit  int // requests per minute per IP on /auth/
	TokenRateLimit  int // requests per minute per IP on /token/

	// Home Graph request-sync
	HomeGraphAPIKey     string
	HomeGraphURL        string
	HomeGraphTimeout    time.Duration
	HomeGraphMaxRetries int
	HomeGraphRetryDelay time.Duration
	HomeGraphMaxDelay   time.Duration
	SyncInterval        time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "homegate.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),

		ClientID:             getEnv("CLIENT_ID", ""),
		ClientSecret:         getEnv("CLIENT_SECRET", ""),
		RedirectURIAllowlist: getEnvSlice("REDIRECT_URI_ALLOWLIST", nil),
		AuthCodeExpiration:   getEnvDuration("AUTH_CODE_EXPIRATION", 10*time.Second),

		UsersDirectory:   getEnv("USERS_DIRECTORY", "users"),
		DevicesDirectory: getEnv("DEVICES_DIRECTORY", "devices"),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		TokenCacheType: getEnv("TOKEN_CACHE_TYPE", TokenCacheTypeMemory),
		TokenCacheTTL:  getEnvDuration("TOKEN_CACHE_TTL", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DriverTimeout: getEnvDuration("DRIVER_TIMEOUT", 10*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogEnv:   getEnv("LOG_ENV", "prod"),
		LogFile:  getEnv("LOG_FILE", ""),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		EnableRateLimit: getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:  getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		TokenRateLimit:  getEnvInt("TOKEN_RATE_LIMIT", 20),

		HomeGraphAPIKey:     getEnv("HOMEGRAPH_API_KEY", ""),
		HomeGraphURL:        getEnv("HOMEGRAPH_URL", defaultHomeGraphURL),
		HomeGraphTimeout:    getEnvDuration("HOMEGRAPH_TIMEOUT", 15*time.Second),
		HomeGraphMaxRetries: getEnvInt("HOMEGRAPH_MAX_RETRIES", 3),
		HomeGraphRetryDelay: getEnvDuration("HOMEGRAPH_RETRY_DELAY", 1*time.Second),
		HomeGraphMaxDelay:   getEnvDuration("HOMEGRAPH_MAX_RETRY_DELAY", 10*time.Second),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 0),
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("CLIENT_ID and CLIENT_SECRET must be set")
	}
	if c.AuthCodeExpiration <= 0 {
		return fmt.Errorf("AUTH_CODE_EXPIRATION must be positive, got %s", c.AuthCodeExpiration)
	}
	if c.DriverTimeout <= 0 {
		return fmt.Errorf("DRIVER_TIMEOUT must be positive, got %s", c.DriverTimeout)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %q", c.DatabaseDriver)
	}
	switch c.TokenCacheType {
	case TokenCacheTypeMemory, TokenCacheTypeRedis:
	default:
		return fmt.Errorf("invalid TOKEN_CACHE_TYPE %q (want memory or redis)", c.TokenCacheType)
	}
	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE %q (want memory or redis)", c.RateLimitStore)
	}
	if c.SyncInterval > 0 && c.HomeGraphAPIKey == "" {
		return errors.New("SYNC_INTERVAL requires HOMEGRAPH_API_KEY")
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.TokenCacheType == TokenCacheTypeRedis ||
		(c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
