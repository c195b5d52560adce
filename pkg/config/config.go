package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	WhatsApp WhatsAppConfig
	Cache    CacheConfig
	OTEL     OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env            string
	ServiceName    string
	AllowedOrigins []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	// Provider is "razorpay" or "mock"
	Provider  string
	KeyID     string
	KeySecret string
	Currency  string
	// ReceiptTimeout bounds the out-of-band receipt notification
	ReceiptTimeout time.Duration
}

// WhatsAppConfig holds WhatsApp Cloud API credentials for receipts
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
}

// CacheConfig holds cache TTLs
type CacheConfig struct {
	DoctorListTTL time.Duration
	StatsTTL      time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:            getEnv("APP_ENV", "development"),
			ServiceName:    getEnv("SERVICE_NAME", "patientcare-api"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "patientcare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Payment: PaymentConfig{
			Provider:       getEnv("PAYMENT_PROVIDER", "mock"),
			KeyID:          getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:      getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:       getEnv("PAYMENT_CURRENCY", "INR"),
			ReceiptTimeout: getEnvAsDuration("PAYMENT_RECEIPT_TIMEOUT", 15*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			BaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v18.0"),
		},
		Cache: CacheConfig{
			DoctorListTTL: getEnvAsDuration("CACHE_DOCTOR_LIST_TTL", 5*time.Minute),
			StatsTTL:      getEnvAsDuration("CACHE_STATS_TTL", 30*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "patientcare-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *PaymentConfig) validate() error {
	switch c.Provider {
	case "mock":
		return nil
	case "razorpay":
		if c.KeyID == "" || c.KeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set when PAYMENT_PROVIDER=razorpay")
		}
		return nil
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.Provider)
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Address returns the listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
