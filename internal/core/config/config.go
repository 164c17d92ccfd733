package config

import (
	"time"

	"github.com/openbridge/relay/internal/agent"
	"github.com/openbridge/relay/internal/correlation"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig            `yaml:"server"`
	Redis       correlation.RedisConfig `yaml:"redis"`
	Logging     LoggingConfig           `yaml:"logging"`
	Telegram    TelegramConfig          `yaml:"telegram"`
	Agent       agent.Config            `yaml:"agent"`
	Speech      SpeechConfig            `yaml:"speech"`
	Dispatch    DispatchConfig          `yaml:"dispatch"`
	Correlation CorrelationConfig       `yaml:"correlation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// SpeechConfig holds the optional text-to-speech service endpoint.
type SpeechConfig struct {
	URL string `yaml:"url"`
}

// DispatchConfig holds the async dispatch and retry knobs.
type DispatchConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// CorrelationConfig holds correlation store settings.
type CorrelationConfig struct {
	TTL time.Duration `yaml:"ttl"`
}
