package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/openbridge/relay/internal/async"
	"github.com/openbridge/relay/internal/correlation"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Agent.SharedSecret == "" {
		// The callback endpoint accepts anything without this.
		slog.Warn("agent.shared_secret is not set; callback authentication will be DISABLED")
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = async.DefaultDispatchTimeout
	}
	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = async.DefaultPolicy.MaxAttempts
	}
	if cfg.Dispatch.InitialDelay == 0 {
		cfg.Dispatch.InitialDelay = async.DefaultPolicy.InitialDelay
	}
	if cfg.Dispatch.MaxDelay == 0 {
		cfg.Dispatch.MaxDelay = async.DefaultPolicy.MaxDelay
	}
	if cfg.Dispatch.MaxDelay < cfg.Dispatch.InitialDelay {
		cfg.Dispatch.MaxDelay = cfg.Dispatch.InitialDelay
	}
	if cfg.Dispatch.BackoffMultiple == 0 {
		cfg.Dispatch.BackoffMultiple = async.DefaultPolicy.BackoffMultiple
	}
	if cfg.Correlation.TTL == 0 {
		cfg.Correlation.TTL = correlation.DefaultTTL
	}
}

// RetryPolicy builds the async retry policy from the dispatch settings.
func (c DispatchConfig) RetryPolicy() async.Policy {
	return async.Policy{
		MaxAttempts:     c.MaxAttempts,
		InitialDelay:    c.InitialDelay,
		MaxDelay:        c.MaxDelay,
		BackoffMultiple: c.BackoffMultiple,
		Retryable:       async.IsRetryable,
	}
}
