package translator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults applied when the corresponding config field is empty.
const (
	DefaultAPIURL       = "http://127.0.0.1:1234/v1"
	DefaultAPIModel     = "local-model"
	DefaultAPITimeout   = 120 * time.Second
	DefaultTemperature  = 0.3
	DefaultLocalCommand = "python3 translate_t5.py"
	DefaultLocalTimeout = 10 * time.Minute
	probeTimeout        = 5 * time.Second
)

// API request modes.
const (
	ModeLine  = "line"
	ModeBatch = "batch"
)

var (
	// ErrBackendUnavailable means the backend could not be reached or
	// refused the request.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedResponse means the backend answered with something that
	// cannot be mapped back onto the input lines.
	ErrMalformedResponse = errors.New("malformed response")
)

// TranslationError ties a failure to the backend that produced it.
type TranslationError struct {
	Backend string
	Err     error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

func wrapErr(backend string, kind error, format string, args ...any) error {
	return &TranslationError{
		Backend: backend,
		Err:     fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

// Translator turns a batch of non-blank source lines into the same number
// of translated lines, in order.
type Translator interface {
	Name() string
	TranslateBatch(ctx context.Context, lines []string) ([]string, error)
}

// LineTranslator can also translate a single line on its own.
type LineTranslator interface {
	Translator
	TranslateOne(ctx context.Context, line string) (string, error)
}

// Prober checks that a backend is reachable before a run starts.
type Prober interface {
	Probe(ctx context.Context) error
}

// APIConfig configures the OpenAI-compatible chat-completion backend.
type APIConfig struct {
	BaseURL     string        `mapstructure:"url" json:"url"`
	Model       string        `mapstructure:"model" json:"model"`
	APIKey      string        `mapstructure:"key" json:"-"`
	Mode        string        `mapstructure:"mode" json:"mode"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	Temperature float64       `mapstructure:"temperature" json:"temperature"`
}

// DefaultAPIConfig targets an LM Studio style endpoint on localhost.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:     DefaultAPIURL,
		Model:       DefaultAPIModel,
		Mode:        ModeLine,
		Timeout:     DefaultAPITimeout,
		Temperature: DefaultTemperature,
	}
}

// LocalConfig configures the external model command.
type LocalConfig struct {
	Command    string        `mapstructure:"command" json:"command"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
	Persistent bool          `mapstructure:"persistent" json:"persistent"`
}

// GoogleConfig configures Google Cloud Translation.
type GoogleConfig struct {
	Credentials string `mapstructure:"credentials" json:"credentials"`
	APIKey      string `mapstructure:"api_key" json:"-"`
	ProjectID   string `mapstructure:"project_id" json:"project_id"`
}
