package common

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	LLM      LLMConfig
	RefStore RefStoreConfig
	DocStore DocStoreConfig
}

// DatabaseConfig holds record-store configuration. Driver selects between
// the Postgres repository and the embedded SQLite one.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	DSN             string        `env:"DB_URL"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"./evaluator.db"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DialTimeout     time.Duration `env:"DB_DIAL_TIMEOUT" envDefault:"3s"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// QueueConfig selects the ingress backend: "channel" (in-process) or "redis".
type QueueConfig struct {
	Backend       string        `env:"QUEUE_BACKEND" envDefault:"channel"`
	Size          int           `env:"QUEUE_SIZE" envDefault:"256"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisKey      string        `env:"REDIS_QUEUE_KEY" envDefault:"evaluator:jobs"`
	PopTimeout    time.Duration `env:"REDIS_POP_TIMEOUT" envDefault:"5s"`
}

// WorkerConfig bounds a single job's end-to-end execution.
type WorkerConfig struct {
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"10m"`
}

// LLMConfig holds inference-service configuration
type LLMConfig struct {
	APIKey      string        `env:"OPENAI_API_KEY"`
	BaseURL     string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float32       `env:"OPENAI_TEMPERATURE" envDefault:"0.2"`
	Timeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"120s"`
}

// RefStoreConfig points at the reference retrieval service.
type RefStoreConfig struct {
	BaseURL string        `env:"REFSTORE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"REFSTORE_TIMEOUT" envDefault:"15s"`
}

// DocStoreConfig holds document storage configuration
type DocStoreConfig struct {
	Root string `env:"DOCSTORE_ROOT" envDefault:"./uploads"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, WrapError(err, "parse environment")
	}
	return &c, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required with DB_DRIVER=postgres", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Queue.Backend != "channel" && c.Queue.Backend != "redis" {
		return NewAppError("CONFIG_ERROR", "QUEUE_BACKEND must be channel or redis", ErrInvalidInput)
	}
	return nil
}
