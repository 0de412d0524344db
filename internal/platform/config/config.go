// Package config builds runtime configuration from environment
// variables so main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the client engine needs to reach the
// hosted backend and tune its own behavior.
type Config struct {
	// BackendURL is the base URL of the hosted backend. The identity
	// provider lives under /auth/v1, the relational store under
	// /rest/v1, and object storage under /storage/v1.
	BackendURL string `env:"MINDSPEND_BACKEND_URL" envDefault:"http://localhost:54321"`

	// APIKey is the publishable key sent with every backend request.
	APIKey string `env:"MINDSPEND_API_KEY"`

	// ProfileRetryAttempts bounds the profile fetch loop that bridges
	// provisioning lag after signup.
	ProfileRetryAttempts int `env:"MINDSPEND_PROFILE_RETRY_ATTEMPTS" envDefault:"3"`

	// ProfileRetryDelay is the fixed wait between profile fetch
	// attempts.
	ProfileRetryDelay time.Duration `env:"MINDSPEND_PROFILE_RETRY_DELAY" envDefault:"500ms"`

	// FlagsPath is where locally persisted flags live.
	FlagsPath string `env:"MINDSPEND_FLAGS_PATH" envDefault:"~/.config/mindspend/flags.json"`

	// RecoveryToken, when set, marks this process as having been
	// launched from a password-recovery link.
	RecoveryToken string `env:"MINDSPEND_RECOVERY_TOKEN"`

	LogLevel string `env:"MINDSPEND_LOG_LEVEL" envDefault:"info"`
}

// FromEnv parses the configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
