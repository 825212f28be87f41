package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	Functions    FunctionsConfig
	Lifecycle    LifecycleConfig
	Signature    SignatureConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the entity store backend.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds SMTP settings for agent emails and the lifecycle webhook.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	WebhookURL   string
}

// KafkaConfig controls forwarding of lifecycle events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FunctionsConfig points at the backend serverless functions endpoint.
type FunctionsConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// LifecycleConfig tunes ticket lifecycle rules.
type LifecycleConfig struct {
	ReopenClearsCompletion bool
	SLAAtRiskMinutes       int
	SLAPolicyFile          string
}

// SignatureConfig tunes the signature sub-lifecycle.
type SignatureConfig struct {
	PollIntervalSeconds int
	PollBackoffMaxSec   int
	LinkTokenTTLHours   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "atendimento-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
			SQLitePath: getEnv("SQLITE_PATH", "atendimento.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:     getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUser:     os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPassword: os.Getenv("NOTIFY_SMTP_PASSWORD"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "ticket-lifecycle"),
		},
		Functions: FunctionsConfig{
			BaseURL:        strings.TrimRight(os.Getenv("FUNCTIONS_BASE_URL"), "/"),
			APIKey:         os.Getenv("FUNCTIONS_API_KEY"),
			TimeoutSeconds: getEnvAsInt("FUNCTIONS_TIMEOUT_SECONDS", 15),
		},
		Lifecycle: LifecycleConfig{
			ReopenClearsCompletion: getEnvAsBool("LIFECYCLE_REOPEN_CLEARS_COMPLETION", false),
			SLAAtRiskMinutes:       getEnvAsInt("LIFECYCLE_SLA_AT_RISK_MINUTES", 240),
			SLAPolicyFile:          os.Getenv("LIFECYCLE_SLA_POLICY_FILE"),
		},
		Signature: SignatureConfig{
			PollIntervalSeconds: getEnvAsInt("SIGNATURE_POLL_INTERVAL_SECONDS", 30),
			PollBackoffMaxSec:   getEnvAsInt("SIGNATURE_POLL_BACKOFF_MAX_SECONDS", 600),
			LinkTokenTTLHours:   getEnvAsInt("SIGNATURE_LINK_TOKEN_TTL_HOURS", 72),
		},
	}

	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "sqlite" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for backend functions.
func (f FunctionsConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// SLAAtRiskWindow returns how close to the deadline a ticket counts as at risk.
func (l LifecycleConfig) SLAAtRiskWindow() time.Duration {
	if l.SLAAtRiskMinutes <= 0 {
		return 4 * time.Hour
	}
	return time.Duration(l.SLAAtRiskMinutes) * time.Minute
}

// PollInterval returns the pending-signature poll period.
func (s SignatureConfig) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// PollBackoffMax caps the per-ticket retry delay after failed checks.
func (s SignatureConfig) PollBackoffMax() time.Duration {
	if s.PollBackoffMaxSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.PollBackoffMaxSec) * time.Second
}

// LinkTokenTTL is how long a signature link stays resolvable through the cache.
func (s SignatureConfig) LinkTokenTTL() time.Duration {
	if s.LinkTokenTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(s.LinkTokenTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
