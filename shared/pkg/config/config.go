package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type RabbitConfig struct {
	URL                  string `env:"RABBIT_URL,required"`
	Exchange             string `env:"RABBIT_EXCHANGE" envDefault:"inventory.events"`
	DeadLetterExchange   string `env:"RABBIT_DLX" envDefault:"inventory.dlx"`
	MaxRetries           int    `env:"RABBIT_MAX_RETRIES" envDefault:"3"`
	RetryDelayMs         int    `env:"RABBIT_RETRY_DELAY_MS" envDefault:"1000"`
	MaxReconnectAttempts int    `env:"RABBIT_MAX_RECONNECT_ATTEMPTS" envDefault:"10"`
	BaseReconnectDelayMs int    `env:"RABBIT_BASE_RECONNECT_DELAY_MS" envDefault:"1000"`
	Prefetch             int    `env:"RABBIT_PREFETCH" envDefault:"10"`
}

func (c RabbitConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c RabbitConfig) BaseReconnectDelay() time.Duration {
	return time.Duration(c.BaseReconnectDelayMs) * time.Millisecond
}

type BreakerConfig struct {
	FailureThreshold  int `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	RecoveryTimeoutMs int `env:"BREAKER_RECOVERY_TIMEOUT_MS" envDefault:"30000"`
	SuccessThreshold  int `env:"BREAKER_SUCCESS_THRESHOLD" envDefault:"2"`
}

func (c BreakerConfig) RecoveryTimeout() time.Duration {
	return time.Duration(c.RecoveryTimeoutMs) * time.Millisecond
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
}

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

type Common struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type Config struct {
	Common   Common
	Rabbit   RabbitConfig
	Breaker  BreakerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
