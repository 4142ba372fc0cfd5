package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Env представляет окружение приложения
type Env string

const (
	// EnvLocal - локальное окружение (для разработки на хосте)
	EnvLocal Env = "local"
	// EnvDocker - Docker окружение (для запуска в контейнерах)
	EnvDocker Env = "docker"
)

// Config содержит конфигурацию Payment Service
type Config struct {
	AppEnv          Env           `env:"APP_ENV" envDefault:"local"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// HTTP (query API)
	HTTPAddr string `env:"HTTP_ADDR"`

	// MongoDB
	MongoURI    string `env:"MONGO_URI"`
	MongoDBName string `env:"MONGO_DB_NAME" envDefault:"payments"`

	// Kafka
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	OrdersTopic      string        `env:"KAFKA_ORDERS_TOPIC" envDefault:"orders"`
	PaymentsTopic    string        `env:"KAFKA_PAYMENTS_TOPIC" envDefault:"payments"`
	DeadOrdersTopic  string        `env:"KAFKA_DEAD_ORDERS_TOPIC" envDefault:"dead_orders"`
	PaymentGroupID   string        `env:"KAFKA_PAYMENT_GROUP_ID" envDefault:"payment-group"`
	RetryMaxAttempts int           `env:"PAYMENT_KAFKA_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"PAYMENT_KAFKA_RETRY_INTERVAL" envDefault:"1s"`

	// Random API (status oracle)
	RandomAPIBaseURL string        `env:"RANDOM_API_BASE_URL" envDefault:"https://www.random.org"`
	RandomAPIPath    string        `env:"RANDOM_API_PATH" envDefault:"/integers/?num=1&min=1&max=100&col=1&base=10&format=plain&rnd=new"`
	RandomAPITimeout time.Duration `env:"RANDOM_API_TIMEOUT" envDefault:"5s"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.AppEnv != EnvLocal && cfg.AppEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", cfg.AppEnv)
	}

	// Дефолты, зависящие от окружения
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MongoURI == "" {
		if cfg.AppEnv == EnvLocal {
			cfg.MongoURI = "mongodb://127.0.0.1:27017"
		} else {
			cfg.MongoURI = "mongodb://mongodb:27017"
		}
	}
	// Убираем пробелы вокруг адресов брокеров ("broker1:9092, broker2:9092")
	brokers := make([]string, 0, len(cfg.KafkaBrokers))
	for _, broker := range cfg.KafkaBrokers {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}
	cfg.KafkaBrokers = brokers
	if len(cfg.KafkaBrokers) == 0 {
		if cfg.AppEnv == EnvLocal {
			cfg.KafkaBrokers = []string{"localhost:19092"}
		} else {
			cfg.KafkaBrokers = []string{"kafka:9092"}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OrdersTopic == "" {
		return fmt.Errorf("KAFKA_ORDERS_TOPIC is required")
	}
	if c.PaymentsTopic == "" {
		return fmt.Errorf("KAFKA_PAYMENTS_TOPIC is required")
	}
	if c.DeadOrdersTopic == "" {
		return fmt.Errorf("KAFKA_DEAD_ORDERS_TOPIC is required")
	}
	if c.PaymentGroupID == "" {
		return fmt.Errorf("KAFKA_PAYMENT_GROUP_ID is required")
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("PAYMENT_KAFKA_RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("PAYMENT_KAFKA_RETRY_INTERVAL must be positive")
	}
	if c.RandomAPIBaseURL == "" {
		return fmt.Errorf("RANDOM_API_BASE_URL is required")
	}
	if c.RandomAPIPath == "" {
		return fmt.Errorf("RANDOM_API_PATH is required")
	}
	if c.RandomAPITimeout <= 0 {
		return fmt.Errorf("RANDOM_API_TIMEOUT must be positive")
	}
	return nil
}

// Log выводит конфигурацию в лог
func (c Config) Log() {
	log.Printf("Config loaded:")
	log.Printf("  APP_ENV: %s", c.AppEnv)
	log.Printf("  SHUTDOWN_TIMEOUT: %s", c.ShutdownTimeout)
	log.Printf("  HTTP_ADDR: %s", c.HTTPAddr)
	log.Printf("  MONGO_URI: %s", maskDSN(c.MongoURI))
	log.Printf("  MONGO_DB_NAME: %s", c.MongoDBName)
	log.Printf("  KAFKA_BROKERS: %v", c.KafkaBrokers)
	log.Printf("  KAFKA_ORDERS_TOPIC: %s", c.OrdersTopic)
	log.Printf("  KAFKA_PAYMENTS_TOPIC: %s", c.PaymentsTopic)
	log.Printf("  KAFKA_DEAD_ORDERS_TOPIC: %s", c.DeadOrdersTopic)
	log.Printf("  KAFKA_PAYMENT_GROUP_ID: %s", c.PaymentGroupID)
	log.Printf("  PAYMENT_KAFKA_RETRY_MAX_ATTEMPTS: %d", c.RetryMaxAttempts)
	log.Printf("  PAYMENT_KAFKA_RETRY_INTERVAL: %s", c.RetryInterval)
	log.Printf("  RANDOM_API_BASE_URL: %s", c.RandomAPIBaseURL)
	log.Printf("  RANDOM_API_PATH: %s", c.RandomAPIPath)
	log.Printf("  RANDOM_API_TIMEOUT: %s", c.RandomAPITimeout)
}

// maskDSN маскирует пароль в URI для безопасного логирования
func maskDSN(dsn string) string {
	masked := dsn
	for i := 0; i < len(dsn)-1; i++ {
		if dsn[i] == ':' && i+1 < len(dsn) && dsn[i+1] != '/' {
			for j := i + 1; j < len(dsn); j++ {
				if dsn[j] == '@' {
					masked = dsn[:i+1] + "***" + dsn[j:]
					break
				}
			}
			break
		}
	}
	return masked
}
