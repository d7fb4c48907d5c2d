package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"snapbuy/internal/domain"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for snapbuy.
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type TelegramConfig struct {
	Token   string `yaml:"token"`
	Polling bool   `yaml:"polling"` // long polling instead of the webhook (local development)
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	APIBase string `yaml:"apiBase,omitempty"`
	Model   string `yaml:"model"`
}

type ServerConfig struct {
	BaseURL string `yaml:"baseURL"`
	Port    int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DiagnosticsConfig controls how much failure detail reaches the end user.
type DiagnosticsConfig struct {
	Verbose bool `yaml:"verbose"`
}

// MetricsConfig exposes the Prometheus text endpoint at /metrics when enabled.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// envOverrides is the fixed set of environment variables read on top of the
// file. Unset variables leave the file or default value alone.
type envOverrides struct {
	TelegramToken   *string `envconfig:"TELEGRAM_TOKEN"`
	TelegramPolling *bool   `envconfig:"TELEGRAM_POLLING"`
	OpenAIKey       *string `envconfig:"OPENAI_API_KEY"`
	OpenAIBase      *string `envconfig:"OPENAI_API_BASE"`
	OpenAIModel     *string `envconfig:"OPENAI_MODEL"`
	BaseURL         *string `envconfig:"BASE_URL"`
	Port            *int    `envconfig:"PORT"`
	VerboseErrors   *bool   `envconfig:"VERBOSE_ERRORS"`
	LogLevel        *string `envconfig:"LOG_LEVEL"`
	LogFormat       *string `envconfig:"LOG_FORMAT"`
	MetricsEnabled  *bool   `envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, in that order, then validates it.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}

		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("cannot read environment: %w", err)
	}

	setString(&cfg.Telegram.Token, env.TelegramToken)
	setBool(&cfg.Telegram.Polling, env.TelegramPolling)
	setString(&cfg.OpenAI.APIKey, env.OpenAIKey)
	setString(&cfg.OpenAI.APIBase, env.OpenAIBase)
	setString(&cfg.OpenAI.Model, env.OpenAIModel)
	setString(&cfg.Server.BaseURL, env.BaseURL)
	if env.Port != nil {
		cfg.Server.Port = *env.Port
	}
	setBool(&cfg.Diagnostics.Verbose, env.VerboseErrors)
	setString(&cfg.Log.Level, env.LogLevel)
	setString(&cfg.Log.Format, env.LogFormat)
	setBool(&cfg.Metrics.Enabled, env.MetricsEnabled)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.BaseURL != "" {
		u, err := url.Parse(cfg.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "server.baseURL must be an absolute http(s) URL")
		}
	}
	if strings.TrimSpace(cfg.OpenAI.Model) == "" {
		errs = append(errs, "openai.model must not be empty")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be one of: text, json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireTelegram reports a missing bot token.
func (c *Config) RequireTelegram() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set: %w", domain.ErrMissingCredential)
	}
	return nil
}

// RequireOpenAI reports a missing inference API key.
func (c *Config) RequireOpenAI() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set: %w", domain.ErrMissingCredential)
	}
	return nil
}

// WebhookEnabled reports whether the public base URL can receive Telegram
// webhooks, which must be HTTPS.
func (c *Config) WebhookEnabled() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

// SlogLevel maps log.level to a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
