package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Booking lifecycle
	Booking BookingConfig

	// Circuit breaker guarding the fast store
	CircuitBreaker CircuitBreakerConfig

	// Cache TTLs per prefix
	Cache CacheConfig

	// Kafka domain-event bus
	Kafka KafkaConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// Budget for advisory lock acquisition before giving up
	AdvisoryLockTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	PoolSize int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	AuthRequests    int           `json:"auth_requests"`
	BookingRequests int           `json:"booking_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// BookingConfig holds booking lifecycle configuration
type BookingConfig struct {
	ExpirationMinutes        int
	SeatLockTTL              time.Duration
	SoftReservationTTL       time.Duration
	MaxSeatsPerBooking       int
	BookingsPerUserPerMinute int
}

// CircuitBreakerConfig holds thresholds for the fast-store circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

// CacheConfig holds per-prefix cache TTLs
type CacheConfig struct {
	EventsTTL time.Duration
	SeatsTTL  time.Duration
}

// KafkaConfig holds the domain-event producer configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	BookingsTopic string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:                getEnv("DB_HOST", "localhost"),
			Port:                getEnv("DB_PORT", "5432"),
			Name:                getEnv("DB_NAME", "evently_db"),
			User:                getEnv("DB_USER", "evently_user"),
			Password:            getEnv("DB_PASSWORD", "evently_password"),
			SSLMode:             getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			AdvisoryLockTimeout: getDurationEnv("DB_ADVISORY_LOCK_TIMEOUT", 30*time.Second),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_MAX_CONNECTIONS", 50),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_PER_MINUTE", 100),
			AuthRequests:    getIntEnv("RATE_LIMIT_AUTH_PER_MINUTE", 200),
			BookingRequests: getIntEnv("RATE_LIMIT_BOOKING_PER_MINUTE", 10),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_PER_MINUTE", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Booking lifecycle
		Booking: BookingConfig{
			ExpirationMinutes:        getIntEnv("BOOKING_EXPIRATION_MINUTES", 5),
			SeatLockTTL:              getDurationEnvSeconds("SEAT_LOCK_TTL_SECONDS", 300*time.Second),
			SoftReservationTTL:       getDurationEnvSeconds("SOFT_RESERVATION_TTL_SECONDS", 600*time.Second),
			MaxSeatsPerBooking:       getIntEnv("MAX_SEATS_PER_BOOKING", 10),
			BookingsPerUserPerMinute: getIntEnv("BOOKINGS_PER_USER_PER_MINUTE", 5),
		},

		// Circuit breaker
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: getIntEnv("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  getDurationEnvSeconds("CIRCUIT_BREAKER_RECOVERY_SECONDS", 60*time.Second),
			HalfOpenMaxCalls: getIntEnv("CIRCUIT_BREAKER_HALF_OPEN_MAX_CALLS", 3),
		},

		// Cache TTLs
		Cache: CacheConfig{
			EventsTTL: getDurationEnvSeconds("CACHE_TTL_EVENTS", 300*time.Second),
			SeatsTTL:  getDurationEnvSeconds("CACHE_TTL_SEATS", 10*time.Second),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled:       getBoolEnv("KAFKA_ENABLED", false),
			Brokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			BookingsTopic: getEnv("KAFKA_BOOKINGS_TOPIC", "booking-events"),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
