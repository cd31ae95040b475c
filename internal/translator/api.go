package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/valpere/tradutor/internal/placeholder"
	"github.com/valpere/tradutor/internal/postprocess"
)

// APITranslator talks to an OpenAI-compatible chat-completion server
// (LM Studio, llama.cpp server, vLLM, OpenRouter).
type APITranslator struct {
	cfg    APIConfig
	source string
	target string
	client *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

// NewAPITranslator builds a client for cfg. Empty fields take the values of
// DefaultAPIConfig, except Temperature where zero is a legal setting.
func NewAPITranslator(cfg APIConfig, source, target string) *APITranslator {
	def := DefaultAPIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &APITranslator{cfg: cfg, source: source, target: target, client: client}
}

func (t *APITranslator) Name() string {
	return "api"
}

// Model returns the model name sent with every request.
func (t *APITranslator) Model() string {
	return t.cfg.Model
}

// TranslateOne translates a single line with the single-line prompt. A reply
// spanning several lines is flattened to one.
func (t *APITranslator) TranslateOne(ctx context.Context, line string) (string, error) {
	var ph placeholder.Set
	protected := ph.Protect(line)

	content, err := t.complete(ctx, withHint(lineSystemPrompt(t.source, t.target), &ph), protected, protected)
	if err != nil {
		return "", err
	}
	content = postprocess.FlattenLine(content)
	if err := t.checkMarkers(&ph, content); err != nil {
		return "", err
	}
	return ph.Restore(content), nil
}

// TranslateBatch sends all lines in one request using the line-preserving
// prompt. The reply must split into exactly len(lines) lines.
func (t *APITranslator) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	switch len(lines) {
	case 0:
		return nil, nil
	case 1:
		out, err := t.TranslateOne(ctx, lines[0])
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	}

	var ph placeholder.Set
	protected := make([]string, len(lines))
	for i, l := range lines {
		protected[i] = ph.Protect(l)
	}

	content, err := t.complete(ctx, withHint(batchSystemPrompt(t.source, t.target), &ph), batchUserPrompt(protected), strings.Join(protected, "\n"))
	if err != nil {
		return nil, err
	}

	out := postprocess.SplitLines(content)
	if len(out) != len(lines) {
		return nil, wrapErr(t.Name(), ErrMalformedResponse,
			"expected %d lines, got %d", len(lines), len(out))
	}
	if err := t.checkMarkers(&ph, strings.Join(out, "\n")); err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = ph.Restore(out[i])
	}
	return out, nil
}

func withHint(system string, ph *placeholder.Set) string {
	if ph.Len() == 0 {
		return system
	}
	return system + " " + placeholder.Hint()
}

// checkMarkers fails when the model dropped protected markup.
func (t *APITranslator) checkMarkers(ph *placeholder.Set, reply string) error {
	if missing := ph.Missing(reply); len(missing) > 0 {
		return wrapErr(t.Name(), ErrMalformedResponse, "reply lost %d of %d protected markers", len(missing), ph.Len())
	}
	return nil
}

// complete sends one chat request. source is the text being translated; it
// keeps reply cleanup from removing labels or quotes the source already has.
func (t *APITranslator) complete(ctx context.Context, system, user, source string) (string, error) {
	body := chatRequest{
		Model: t.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: t.cfg.Temperature,
		MaxTokens:   -1,
		Stream:      false,
	}

	resp, err := t.client.R().SetContext(ctx).SetBody(body).Post("/chat/completions")
	if err != nil {
		return "", &TranslationError{
			Backend: t.Name(),
			Err:     fmt.Errorf("%w: %w", ErrBackendUnavailable, err),
		}
	}
	if resp.IsError() {
		return "", wrapErr(t.Name(), ErrBackendUnavailable,
			"API returned status %d: %s", resp.StatusCode(), abbreviate(resp.String(), 200))
	}

	content := gjson.GetBytes(resp.Body(), "choices.0.message.content")
	if !content.Exists() {
		return "", wrapErr(t.Name(), ErrMalformedResponse,
			"no choices.0.message.content in %s", abbreviate(resp.String(), 200))
	}

	text := postprocess.CleanReply(source, content.String())
	if text == "" {
		return "", wrapErr(t.Name(), ErrMalformedResponse, "empty translation")
	}
	return text, nil
}

// Models lists the model IDs advertised at GET /models.
func (t *APITranslator) Models(ctx context.Context) ([]string, error) {
	resp, err := t.client.R().SetContext(ctx).Get("/models")
	if err != nil {
		return nil, &TranslationError{
			Backend: t.Name(),
			Err:     fmt.Errorf("%w: %w", ErrBackendUnavailable, err),
		}
	}
	if resp.IsError() {
		return nil, wrapErr(t.Name(), ErrBackendUnavailable, "GET /models returned status %d", resp.StatusCode())
	}

	var ids []string
	for _, id := range gjson.GetBytes(resp.Body(), "data.#.id").Array() {
		ids = append(ids, id.String())
	}
	return ids, nil
}

// Probe checks that the server answers GET /models within five seconds.
func (t *APITranslator) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := t.Models(ctx)
	return err
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
