package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported table backends.
const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// Config holds the application configuration with validation
type Config struct {
	// Application settings
	Port            int    `validate:"required,min=1,max=65535"`
	LogLevel        string `validate:"required,oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=text json"`
	DisplayTimezone string

	// Backend selects which table client serves the data: postgres or rest.
	Backend string `validate:"required,oneof=postgres rest"`

	// Database settings, used by the postgres backend
	Database DatabaseConfig

	// REST settings, used by the rest backend
	REST RESTConfig

	// External services
	NotificationService NotificationConfig

	// Security settings
	Security SecurityConfig `validate:"required"`

	// Performance settings
	Server ServerConfig `validate:"required"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `validate:"required,oneof=postgres pgx"`
	Host            string `validate:"required"`
	Port            int    `validate:"required,min=1,max=65535"`
	User            string `validate:"required"`
	Password        string `validate:"required"`
	Name            string `validate:"required"`
	SSLMode         string `validate:"required,oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"min=1"`
	MaxIdleConns    int    `validate:"min=1"`
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

// RESTConfig holds the hosted REST backend configuration
type RESTConfig struct {
	URL     string `validate:"required,url"`
	APIKey  string
	Timeout time.Duration
}

// NotificationConfig holds notification webhook configuration. An empty URL
// disables notifications.
type NotificationConfig struct {
	URL            string `validate:"omitempty,url"`
	Timeout        time.Duration
	RetryAttempts  int `validate:"min=0,max=10"`
	RetryDelay     time.Duration
	MaxPayloadSize int64 `validate:"min=1024"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimitRPS    int           `validate:"min=1"`
	RateLimitBurst  int           `validate:"min=1"`
	RequestTimeout  time.Duration `validate:"required"`
	ShutdownTimeout time.Duration `validate:"required"`
	EnableCORS      bool
	AllowedOrigins  []string
	TrustedProxies  []string
}

// ServerConfig holds server performance configuration
type ServerConfig struct {
	ReadTimeout    time.Duration `validate:"required"`
	WriteTimeout   time.Duration `validate:"required"`
	IdleTimeout    time.Duration `validate:"required"`
	MaxHeaderBytes int           `validate:"min=1024"`
	EnableMetrics  bool
	MetricsPath    string
}

// LoadConfig loads and validates the configuration from environment variables
func LoadConfig() (*Config, error) {

	config := &Config{
		Port:            getEnvAsInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		Backend:         getEnv("BACKEND", BackendPostgres),

		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},

		REST: RESTConfig{
			URL:     getEnv("BACKEND_URL", ""),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},

		NotificationService: NotificationConfig{
			URL:            getEnv("NOTIFIER_URL", ""),
			Timeout:        getEnvAsDuration("NOTIFIER_TIMEOUT", 10*time.Second),
			RetryAttempts:  getEnvAsInt("NOTIFIER_RETRY_ATTEMPTS", 3),
			RetryDelay:     getEnvAsDuration("NOTIFIER_RETRY_DELAY", time.Second),
			MaxPayloadSize: getEnvAsInt64("NOTIFIER_MAX_PAYLOAD_SIZE", 1024*1024),
		},

		Security: SecurityConfig{
			RateLimitRPS:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 200),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			EnableCORS:      getEnvAsBool("ENABLE_CORS", false),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{}),
			TrustedProxies:  getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},

		Server: ServerConfig{
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 35*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxHeaderBytes: getEnvAsInt("SERVER_MAX_HEADER_BYTES", 1<<20), // 1MB
			EnableMetrics:  getEnvAsBool("ENABLE_METRICS", true),
			MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig performs basic validation on the configuration
func validateConfig(config *Config) error {
	var errors []string

	switch config.Backend {
	case BackendPostgres:
		if config.Database.User == "" {
			errors = append(errors, "database user is required")
		}
		if config.Database.Password == "" {
			errors = append(errors, "database password is required in production")
		}
		if config.Database.Name == "" {
			errors = append(errors, "database name is required")
		}
		if config.Database.Driver != "postgres" && config.Database.Driver != "pgx" {
			errors = append(errors, "database driver must be postgres or pgx")
		}
		if config.Database.Port < 1 || config.Database.Port > 65535 {
			errors = append(errors, "database port must be between 1 and 65535")
		}
	case BackendREST:
		if config.REST.URL == "" {
			errors = append(errors, "backend URL is required for the rest backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("unknown backend %q (want postgres or rest)", config.Backend))
	}

	if config.LogFormat != "text" && config.LogFormat != "json" {
		errors = append(errors, "log format must be text or json")
	}

	if _, err := time.LoadLocation(config.DisplayTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display timezone %q", config.DisplayTimezone))
	}

	// Validate port ranges
	if config.Port < 1 || config.Port > 65535 {
		errors = append(errors, "port must be between 1 and 65535")
	}

	if config.Security.RateLimitRPS < 1 || config.Security.RateLimitBurst < 1 {
		errors = append(errors, "rate limit RPS and burst must be positive")
	}

	if config.Server.EnableMetrics && !strings.HasPrefix(config.Server.MetricsPath, "/") {
		errors = append(errors, "metrics path must start with /")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// Location returns the timezone used to display timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return items
	}
	return defaultValue
}
