package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Pushover PushoverConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	// Engine selects the counter store backend: sqlite, postgres or redis.
	Engine        string
	SQLitePath    string
	PostgresDSN   string
	MigrationsDir string
	AutoMigrate   bool
	Timeout       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type PushoverConfig struct {
	Token string
	User  string
}

type AuthConfig struct {
	// AdminToken gates the admin surface and is required at startup.
	// WebhookToken gates the webhook ingress only when set; the upstream
	// platform usually cannot send credentials.
	AdminToken   string
	WebhookToken string
}

type WebhookConfig struct {
	// IgnoredEvents are event names whose webhooks are acknowledged but
	// never counted or notified.
	IgnoredEvents []string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Engine:        getEnv("STORE_ENGINE", "sqlite"),
			SQLitePath:    getEnv("SQLITE_PATH", "file:tickets.db?cache=shared"),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
			Timeout:       time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC_SALES", "ticket-sales"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Pushover: PushoverConfig{
			Token: getEnv("PUSHOVER_TOKEN", ""),
			User:  getEnv("PUSHOVER_USER", ""),
		},
		Auth: AuthConfig{
			AdminToken:   getEnv("ADMIN_API_TOKEN", ""),
			WebhookToken: getEnv("WEBHOOK_TOKEN", ""),
		},
		Webhook: WebhookConfig{
			IgnoredEvents: getEnvList("IGNORED_EVENTS", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
