package translator

import (
	"context"
	"fmt"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// googleBatchLimit is the number of segments Cloud Translation v2 accepts
// in one request.
const googleBatchLimit = 128

type googleClient interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// GoogleTranslator uses the Cloud Translation v2 API, which translates a
// whole batch natively.
type GoogleTranslator struct {
	source language.Tag
	target language.Tag
	client googleClient
}

// NewGoogleTranslator validates the language pair and opens a client. The
// caller must Close it.
func NewGoogleTranslator(ctx context.Context, cfg GoogleConfig, source, target string) (*GoogleTranslator, error) {
	src, err := language.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid source language %q: %w", source, err)
	}
	tgt, err := language.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", target, err)
	}

	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(cfg.ProjectID))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, wrapErr("google", ErrBackendUnavailable, "failed to create client: %v", err)
	}

	return &GoogleTranslator{source: src, target: tgt, client: client}, nil
}

func (t *GoogleTranslator) Name() string {
	return "google"
}

// Model names the engine for cache keys; v2 offers no model choice.
func (t *GoogleTranslator) Model() string {
	return "nmt"
}

func (t *GoogleTranslator) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for start := 0; start < len(lines); start += googleBatchLimit {
		end := min(start+googleBatchLimit, len(lines))

		translations, err := t.client.Translate(ctx, lines[start:end], t.target, &translate.Options{
			Source: t.source,
			Format: translate.Text,
		})
		if err != nil {
			return nil, &TranslationError{Backend: t.Name(), Err: fmt.Errorf("%w: %w", ErrBackendUnavailable, err)}
		}
		if len(translations) != end-start {
			return nil, wrapErr(t.Name(), ErrMalformedResponse,
				"expected %d translations, got %d", end-start, len(translations))
		}
		for _, tr := range translations {
			out = append(out, tr.Text)
		}
	}
	return out, nil
}

// Probe translates a single word to verify credentials and quota.
func (t *GoogleTranslator) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := t.TranslateBatch(ctx, []string{"hello"})
	return err
}

func (t *GoogleTranslator) Close() error {
	return t.client.Close()
}
