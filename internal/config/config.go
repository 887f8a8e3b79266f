package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	HTTP     HTTPConfig
	Ledger   LedgerConfig
	Gateway  GatewayConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxRetries   int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds broker settings for the outbox worker and consumers
type KafkaConfig struct {
	Broker        string
	ConsumerGroup string
	PollInterval  time.Duration
}

// HTTPConfig holds server timeouts
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LedgerConfig tunes the version store's locking behaviour.
type LedgerConfig struct {
	// LockTimeout bounds how long a writer waits for a receipt's row lock
	// before failing with LOCK_TIMEOUT. Must be positive; the store never
	// waits unbounded.
	LockTimeout time.Duration
}

// GatewayConfig points at the external calculation engine and stamping
// provider. Both live outside this service.
type GatewayConfig struct {
	CalculationURL string
	StampingURL    string
	Timeout        time.Duration
}

// Load reads configuration with the following priority (highest first):
// 1. Environment variables with NOMINA_ prefix (e.g., NOMINA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply
	}

	v.SetEnvPrefix("NOMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("database.host"),
			Port:         v.GetInt("database.port"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			DBName:       v.GetString("database.dbname"),
			SSLMode:      v.GetString("database.sslmode"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			MaxRetries:   v.GetInt("database.max_retries"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Broker:        v.GetString("kafka.broker"),
			ConsumerGroup: v.GetString("kafka.consumer_group"),
			PollInterval:  v.GetDuration("kafka.poll_interval"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Ledger: LedgerConfig{
			LockTimeout: v.GetDuration("ledger.lock_timeout"),
		},
		Gateway: GatewayConfig{
			CalculationURL: v.GetString("gateway.calculation_url"),
			StampingURL:    v.GetString("gateway.stamping_url"),
			Timeout:        v.GetDuration("gateway.timeout"),
		},
	}

	if cfg.Ledger.LockTimeout <= 0 {
		return nil, fmt.Errorf("ledger.lock_timeout must be positive, got %s", cfg.Ledger.LockTimeout)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nomina-core")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "nomina")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_retries", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.broker", "localhost:9092")
	v.SetDefault("kafka.consumer_group", "nomina-core-calculation")
	v.SetDefault("kafka.poll_interval", 3*time.Second)

	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("ledger.lock_timeout", 5*time.Second)

	v.SetDefault("gateway.calculation_url", "http://localhost:8081")
	v.SetDefault("gateway.stamping_url", "http://localhost:8082")
	v.SetDefault("gateway.timeout", 30*time.Second)
}
