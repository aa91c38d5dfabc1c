// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Payment     PaymentConfig
	Email       EmailConfig
	WhatsApp    WhatsAppConfig
	SMS         SMSConfig
	Delivery    DeliveryConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL int // in seconds
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type PaymentConfig struct {
	StripeSecretKey   string
	WebhookSecret     string
	Currency          string
	GatewayTimeout    time.Duration
	MinimumWithdrawal float64
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type WhatsAppConfig struct {
	BaseURL string
	APIKey  string
	Source  string
}

type SMSConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
}

type DeliveryConfig struct {
	MaxRetryCount   int
	BackoffSchedule []time.Duration
	SweepInterval   time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "eventra"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "change-me-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsInt("REDIS_CACHE_TTL", 60),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "eventra.domain-events"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			Currency:          getEnv("PAYMENT_CURRENCY", "usd"),
			GatewayTimeout:    time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
			MinimumWithdrawal: getEnvAsFloat("MINIMUM_WITHDRAWAL_AMOUNT", 1000),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "tickets@eventra.app"),
			FromName:     getEnv("FROM_NAME", "Eventra"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: getEnv("WHATSAPP_BASE_URL", ""),
			APIKey:  getEnv("WHATSAPP_API_KEY", ""),
			Source:  getEnv("WHATSAPP_SOURCE", ""),
		},
		SMS: SMSConfig{
			BaseURL: getEnv("SMS_BASE_URL", ""),
			APIKey:  getEnv("SMS_API_KEY", ""),
			Sender:  getEnv("SMS_SENDER", ""),
		},
		Delivery: DeliveryConfig{
			MaxRetryCount:   getEnvAsInt("DELIVERY_MAX_RETRY_COUNT", 3),
			BackoffSchedule: getEnvAsDurations("DELIVERY_BACKOFF_SCHEDULE", []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}),
			SweepInterval:   time.Duration(getEnvAsInt("DELIVERY_SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWT.SecretKey == "change-me-in-production" {
			return fmt.Errorf("JWT secret key must be changed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("payment webhook secret is required in production")
		}
	}

	if c.Delivery.MaxRetryCount < 0 {
		return fmt.Errorf("delivery max retry count must not be negative")
	}
	if len(c.Delivery.BackoffSchedule) == 0 {
		return fmt.Errorf("delivery backoff schedule must not be empty")
	}

	return nil
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDurations(key string, defaultValue []time.Duration) []time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, d)
	}
	return out
}
