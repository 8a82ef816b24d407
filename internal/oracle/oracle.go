// Package oracle drives the LLM that impersonates the benchmark user.
//
// The model sees the transcript so far and answers with either one request
// for the target wrapped in <lov-chat-request> tags, or <lov-scenario-finished/>
// once the scenario's goal is reached. Parse turns that answer into an Action.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Roles as seen by the oracle model. The impersonated human speaks as the
// assistant; the system under test speaks as the user.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of oracle history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions are per-run model settings.
type CallOptions struct {
	Temperature float64
	// Model overrides the backend's default model when non-empty.
	Model string
}

// Oracle produces the impersonated user's next message.
type Oracle interface {
	NextAction(ctx context.Context, history []Message, opts CallOptions) (string, error)
}

// Preamble is the system message prepended to every call.
const Preamble = `You are impersonating a human user who is building software with an AI code-generation system called GPT Engineer.
You are given a scenario describing what you want to build, followed by the conversation so far. Your own earlier messages appear as the assistant; the system's replies appear as the user.

Rules:
- To send the system your next request, wrap exactly that request in <lov-chat-request> and </lov-chat-request>. Send one request per reply.
- Write requests the way a real user would: concrete, short, focused on what you want to see next.
- When the scenario's goal has been achieved, or the system cannot make further progress, reply with <lov-scenario-finished/> and nothing else.
- Never write code yourself.`

// perCallTimeout bounds a single oracle HTTP call.
const perCallTimeout = 2 * time.Minute

// ErrNoProvider is returned by New when no backend can be configured.
var ErrNoProvider = errors.New("oracle: no provider configured")

// Config selects and configures a backend.
type Config struct {
	// Provider is "openai", "ollama" or "auto" (openai when an API key is set).
	Provider      string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OllamaURL     string
	OllamaModel   string
}

// New returns the backend named by cfg.Provider.
func New(cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("%w: openai requires OPENAI_API_KEY", ErrNoProvider)
		}
		return NewOpenAIOracle(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "ollama":
		return NewOllamaOracle(cfg.OllamaURL, cfg.OllamaModel), nil
	case "", "auto":
		if cfg.OpenAIKey != "" {
			return NewOpenAIOracle(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
		}
		return NewOllamaOracle(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProvider, cfg.Provider)
	}
}

func withPreamble(history []Message) []Message {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: "system", Content: Preamble})
	return append(msgs, history...)
}
