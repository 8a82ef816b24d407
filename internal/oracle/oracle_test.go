package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/gauntlet/internal/oracle"
)

func TestOpenAIOracle_SendsPreambleHistoryAndTemperature(t *testing.T) {
	var got struct {
		Model       string           `json:"model"`
		Messages    []oracle.Message `json:"messages"`
		Temperature float64          `json:"temperature"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<lov-chat-request>hi</lov-chat-request>"}}]}`))
	}))
	defer srv.Close()

	o := oracle.NewOpenAIOracle("sk-test", "", srv.URL)
	history := []oracle.Message{
		{Role: oracle.RoleUser, Content: "Create a todo app"},
		{Role: oracle.RoleAssistant, Content: "Build me a todo app"},
	}
	out, err := o.NextAction(context.Background(), history, oracle.CallOptions{Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "<lov-chat-request>hi</lov-chat-request>", out)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 0.5, got.Temperature)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, oracle.Preamble, got.Messages[0].Content)
	assert.Equal(t, history, got.Messages[1:])
}

func TestOpenAIOracle_ModelOverrideAndErrors(t *testing.T) {
	var (
		model  atomic.Value
		status atomic.Int32
	)
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		m, _ := body["model"].(string)
		model.Store(m)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := oracle.NewOpenAIOracle("k", "gpt-4o-mini", srv.URL)
	_, err := o.NextAction(context.Background(), nil, oracle.CallOptions{Model: "o3"})
	assert.ErrorContains(t, err, "no choices")
	assert.Equal(t, "o3", model.Load())

	status.Store(http.StatusTooManyRequests)
	_, err = o.NextAction(context.Background(), nil, oracle.CallOptions{})
	assert.ErrorContains(t, err, "status 429")
	assert.Equal(t, "gpt-4o-mini", model.Load())
}

func TestOllamaOracle(t *testing.T) {
	var got struct {
		Model    string           `json:"model"`
		Messages []oracle.Message `json:"messages"`
		Stream   bool             `json:"stream"`
		Options  struct {
			Temperature float64 `json:"temperature"`
		} `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"content":"<lov-scenario-finished/>"}}`))
	}))
	defer srv.Close()

	o := oracle.NewOllamaOracle(srv.URL, "llama3")
	out, err := o.NextAction(context.Background(), []oracle.Message{{Role: oracle.RoleUser, Content: "x"}}, oracle.CallOptions{Temperature: 1.2})
	require.NoError(t, err)
	assert.Equal(t, "<lov-scenario-finished/>", out)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 1.2, got.Options.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestNew_ProviderSelection(t *testing.T) {
	o, err := oracle.New(oracle.Config{Provider: "auto", OpenAIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &oracle.OpenAIOracle{}, o)

	o, err = oracle.New(oracle.Config{Provider: "auto"})
	require.NoError(t, err)
	assert.IsType(t, &oracle.OllamaOracle{}, o)

	_, err = oracle.New(oracle.Config{Provider: "openai"})
	assert.ErrorIs(t, err, oracle.ErrNoProvider)

	_, err = oracle.New(oracle.Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, oracle.ErrNoProvider)
}
