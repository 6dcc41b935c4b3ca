package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

// EnvPrefix prefixes every runtime setting read from the environment.
const EnvPrefix = "TAP_DAYFORCE"

// Settings holds process-level runtime configuration.
type Settings struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// RetryBudget caps the wall-clock time spent retrying one request
	RetryBudget time.Duration `mapstructure:"retry_budget"`
	// RequestTimeout bounds a single HTTP round trip
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RateLimit paces requests per second (0 = unlimited)
	RateLimit float64 `mapstructure:"rate_limit"`

	MetricsFile string `mapstructure:"metrics_file"`
	Trace       bool   `mapstructure:"trace"`

	RollbarToken       string `mapstructure:"rollbar_access_token"`
	RollbarEnvironment string `mapstructure:"rollbar_environment"`
}

// NewViper returns a viper instance with defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("retry_budget", 180*time.Second)
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("metrics_file", "")
	v.SetDefault("trace", false)
	v.SetDefault("rollbar_access_token", "")
	v.SetDefault("rollbar_environment", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Error tracking keeps its conventional unprefixed names.
	_ = v.BindEnv("rollbar_access_token", "ROLLBAR_ACCESS_TOKEN")
	_ = v.BindEnv("rollbar_environment", "ROLLBAR_ENVIRONMENT")

	return v
}

// LoadSettings resolves Settings from v.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		RetryBudget:        v.GetDuration("retry_budget"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		RateLimit:          v.GetFloat64("rate_limit"),
		MetricsFile:        v.GetString("metrics_file"),
		Trace:              v.GetBool("trace"),
		RollbarToken:       v.GetString("rollbar_access_token"),
		RollbarEnvironment: v.GetString("rollbar_environment"),
	}

	if s.RetryBudget <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "retry_budget must be positive")
	}
	if s.RequestTimeout <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "request_timeout must be positive")
	}
	if s.RateLimit < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "rate_limit cannot be negative")
	}
	switch s.LogFormat {
	case "json", "console":
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "log_format must be json or console")
	}

	return s, nil
}

// RollbarEnabled reports whether both Rollbar settings are present.
func (s *Settings) RollbarEnabled() bool {
	return s.RollbarToken != "" && s.RollbarEnvironment != ""
}

// DefaultSettings returns the built-in defaults without consulting the environment.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:       "info",
		LogFormat:      "json",
		RetryBudget:    180 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}
