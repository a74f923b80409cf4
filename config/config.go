package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	Database          DatabaseConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Stripe            StripeConfig
	Fees              FeesConfig
	Webhooks          WebhooksConfig
	State             StateConfig
	Kafka             KafkaConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type StripeConfig struct {
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type FeesConfig struct {
	CacheTTL time.Duration
}

type WebhooksConfig struct {
	AckTimeout time.Duration
	ClaimTTL   time.Duration
	BatchSize  int32
}

type StateConfig struct {
	MaxRetries int
}

type KafkaConfig struct {
	Brokers            []string
	NotificationsTopic string
	MaxAttempts        int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	Jitter             bool
}

type JobsConfig struct {
	WebhookReprocessInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	if driver != DriverMySQL && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "fees-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Stripe: StripeConfig{
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
		},
		Fees: FeesConfig{
			CacheTTL: getSecondsEnv("FEES_CACHE_TTL_SECONDS", 5*time.Minute),
		},
		Webhooks: WebhooksConfig{
			AckTimeout: getMillisecondsEnv("WEBHOOK_ACK_TIMEOUT_MS", 5*time.Second),
			ClaimTTL:   getSecondsEnv("WEBHOOK_CLAIM_TTL_SECONDS", 2*time.Minute),
			BatchSize:  int32(getIntEnv("WEBHOOK_JOB_BATCH_SIZE", 100)),
		},
		State: StateConfig{
			MaxRetries: getIntEnv("STATE_MAX_RETRIES", 5),
		},
		Kafka: KafkaConfig{
			Brokers:            getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			NotificationsTopic: getEnv("NOTIFICATIONS_TOPIC", "notifications"),
			MaxAttempts:        getIntEnv("KAFKA_RETRY_MAX_ATTEMPTS", 5),
			BaseDelay:          getMillisecondsEnv("KAFKA_RETRY_BASE_DELAY_MS", 100*time.Millisecond),
			MaxDelay:           getMillisecondsEnv("KAFKA_RETRY_MAX_DELAY_MS", 10*time.Second),
			Jitter:             getBoolEnv("KAFKA_RETRY_JITTER", true),
		},
		Jobs: JobsConfig{
			WebhookReprocessInterval: getMinutesEnv("WEBHOOK_REPROCESS_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
