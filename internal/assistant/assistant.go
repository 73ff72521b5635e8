// Package assistant turns free-form user requests into catalog search terms.
//
// An Ollama-backed extractor asks a local model to name the item the user
// means. Any failure falls back to the raw input, so search never depends on
// the model being available.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rewired-gh/silverroute/internal/logger"
)

// FailureMarker is the reply the model is told to give when it cannot
// identify an item.
const FailureMarker = "ERRO"

const promptTemplate = `Você é um assistente especialista em Albion Online. Extraia até 6 variantes do nome do item do pedido do usuário. ` +
	`Responda APENAS com o nome do item. Se não entender, responda com "` + FailureMarker + `". ` +
	`Pedido do usuário: "%s"`

// TermExtractor derives a search term from user input.
type TermExtractor interface {
	ExtractTerm(ctx context.Context, input string) string
}

// Passthrough returns the input unchanged.
type Passthrough struct{}

// ExtractTerm returns input as is.
func (Passthrough) ExtractTerm(_ context.Context, input string) string {
	return input
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama extracts terms with a model served by an Ollama instance.
type Ollama struct {
	http  *resty.Client
	model string
}

// NewOllama creates an extractor for the given Ollama base URL and model.
func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Ollama{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		model: model,
	}
}

// ExtractTerm asks the model for the item name. The input is returned when
// the request fails, the reply is empty or the model reports FailureMarker.
func (o *Ollama) ExtractTerm(ctx context.Context, input string) string {
	term, err := o.generate(ctx, fmt.Sprintf(promptTemplate, input))
	if err != nil {
		logger.Warn("Assistant unavailable, using plain search: %v", err)
		return input
	}
	if term == "" || strings.Contains(term, FailureMarker) {
		logger.Info("Assistant could not identify an item in %q", input)
		return input
	}
	logger.Info("Assistant identified item: %s", term)
	return term
}

func (o *Ollama) generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Model: o.model, Prompt: prompt, Stream: false}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}
	return strings.TrimSpace(out.Response), nil
}
