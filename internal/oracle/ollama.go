package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5:7b"
)

// OllamaOracle calls a local Ollama chat model.
type OllamaOracle struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaOracle creates an oracle that calls Ollama's /api/chat.
func NewOllamaOracle(baseURL, model string) *OllamaOracle {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout:   perCallTimeout + perCallTimeout/10,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// NextAction implements Oracle.
func (o *OllamaOracle) NextAction(ctx context.Context, history []Message, opts CallOptions) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: withPreamble(history),
		Stream:   false,
		Options:  ollamaOptions{Temperature: opts.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("ollama oracle: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama oracle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama oracle: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama oracle: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama oracle: decode response: %w", err)
	}
	return result.Message.Content, nil
}
