// Package config loads tradutor settings from flags, TRADUTOR_* environment
// variables, an optional config file and built-in defaults, in that order
// of priority.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/valpere/tradutor/internal/batcher"
	"github.com/valpere/tradutor/internal/logging"
	"github.com/valpere/tradutor/internal/translator"
)

// Backends.
const (
	BackendAPI    = "api"
	BackendLocal  = "local"
	BackendGoogle = "google"
)

// Batch policies.
const (
	PolicyCount  = "count"
	PolicyTokens = "tokens"
)

// Failure policies. An empty policy falls back per line in API line mode
// and aborts otherwise.
const (
	OnErrorFallback = "fallback"
	OnErrorAbort    = "abort"
)

const envPrefix = "TRADUTOR"

type BatchConfig struct {
	Policy    string `mapstructure:"policy"`
	Size      int    `mapstructure:"size"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Workers   int    `mapstructure:"workers"`
}

type CacheConfig struct {
	DB       string `mapstructure:"db"`
	Disabled bool   `mapstructure:"disabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the complete configuration of a run.
type Config struct {
	Input          string `mapstructure:"input"`
	Output         string `mapstructure:"output"`
	Backend        string `mapstructure:"backend"`
	Source         string `mapstructure:"source"`
	Target         string `mapstructure:"target"`
	OnError        string `mapstructure:"on_error"`
	StatusFile     string `mapstructure:"status_file"`
	Resume         string `mapstructure:"resume"`
	ValidateOutput bool   `mapstructure:"validate"`
	NoProgress     bool   `mapstructure:"no_progress"`

	Batch  BatchConfig             `mapstructure:"batch"`
	API    translator.APIConfig    `mapstructure:"api"`
	Local  translator.LocalConfig  `mapstructure:"local"`
	Google translator.GoogleConfig `mapstructure:"google"`
	Cache  CacheConfig             `mapstructure:"cache"`
	Log    LogConfig               `mapstructure:"log"`
}

// SetDefaults registers the built-in default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "texto.txt")
	v.SetDefault("output", "texto_traduzido.txt")
	v.SetDefault("backend", BackendAPI)
	v.SetDefault("source", "en")
	v.SetDefault("target", "pt")
	v.SetDefault("on_error", "")
	v.SetDefault("status_file", "")
	v.SetDefault("resume", "")
	v.SetDefault("validate", false)
	v.SetDefault("no_progress", false)

	v.SetDefault("batch.policy", PolicyCount)
	v.SetDefault("batch.size", 5)
	v.SetDefault("batch.max_tokens", batcher.DefaultMaxTokens)
	v.SetDefault("batch.workers", 1)

	v.SetDefault("api.url", translator.DefaultAPIURL)
	v.SetDefault("api.model", translator.DefaultAPIModel)
	v.SetDefault("api.key", "")
	v.SetDefault("api.mode", translator.ModeLine)
	v.SetDefault("api.timeout", translator.DefaultAPITimeout)
	v.SetDefault("api.temperature", translator.DefaultTemperature)

	v.SetDefault("local.command", translator.DefaultLocalCommand)
	v.SetDefault("local.timeout", translator.DefaultLocalTimeout)
	v.SetDefault("local.persistent", false)

	v.SetDefault("google.credentials", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.project_id", "")

	v.SetDefault("cache.db", filepath.Join(".", "data", "tradutor.db"))
	v.SetDefault("cache.disabled", false)

	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults and TRADUTOR_* environment
// binding (api.url is read from TRADUTOR_API_URL).
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile when given, otherwise an optional tradutor.{yaml,toml,json}
// from the working directory or ~/.config/tradutor, and decodes the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("tradutor")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tradutor")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum values and ranges. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, val string, allowed ...string) {
		for _, a := range allowed {
			if val == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), val))
	}

	oneOf("backend", c.Backend, BackendAPI, BackendLocal, BackendGoogle)
	oneOf("batch.policy", c.Batch.Policy, PolicyCount, PolicyTokens)
	if c.OnError != "" {
		oneOf("on_error", c.OnError, OnErrorFallback, OnErrorAbort)
	}
	oneOf("api.mode", c.API.Mode, translator.ModeLine, translator.ModeBatch)

	if c.Batch.Size < 1 {
		errs = append(errs, fmt.Errorf("batch.size must be at least 1, got %d", c.Batch.Size))
	}
	if c.Batch.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("batch.max_tokens must be at least 1, got %d", c.Batch.MaxTokens))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers))
	}
	if c.Source == "" || c.Target == "" {
		errs = append(errs, errors.New("source and target languages are required"))
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path is required"))
	} else if filepath.Clean(c.Output) == filepath.Clean(c.Input) {
		errs = append(errs, errors.New("output path must differ from input path"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Capacity returns the batch capacity selected by the batch policy.
func (c *Config) Capacity() batcher.Capacity {
	if c.Batch.Policy == PolicyTokens {
		return batcher.TokenCapacity{MaxTokens: c.Batch.MaxTokens}
	}
	return batcher.CountCapacity{Lines: c.Batch.Size}
}

// BatchMode reports whether the API backend should send whole batches.
// Other backends always translate whole batches.
func (c *Config) BatchMode() bool {
	return c.Backend != BackendAPI || c.API.Mode == translator.ModeBatch
}

// FailFast reports whether a failed batch or line aborts the run.
func (c *Config) FailFast() bool {
	switch c.OnError {
	case OnErrorAbort:
		return true
	case OnErrorFallback:
		return false
	}
	return c.BatchMode()
}
