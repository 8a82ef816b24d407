package target_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/gauntlet/internal/target"
)

func TestSendChat_RequestShape(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/p-1/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"message_id":"m1"}`))
	}))
	defer srv.Close()

	c := target.NewClient(srv.URL+"/", "tok", 5*time.Second)
	reply, err := c.SendChat(context.Background(), "p-1", "Create a todo app")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"message_id":"m1"}`, string(reply))

	assert.Equal(t, "Create a todo app", gotBody["message"])
	assert.Equal(t, "instant", gotBody["mode"])
	assert.Equal(t, []any{}, gotBody["images"])
}

func TestSendChat_Non2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", 5000))
	}))
	defer srv.Close()

	_, err := target.NewClient(srv.URL, "tok", time.Second).SendChat(context.Background(), "p", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, target.ErrTargetUnavailable)

	var se *target.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Len(t, se.Body, 1024)
}

func TestSendChat_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := target.NewClient(url, "tok", time.Second).SendChat(context.Background(), "p", "hi")
	assert.ErrorIs(t, err, target.ErrTargetUnavailable)
}

func TestSendChat_EmptyInputMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := target.NewClient(srv.URL, "tok", time.Second)
	_, err := c.SendChat(context.Background(), "", "hi")
	assert.ErrorIs(t, err, target.ErrInvalidRequest)
	_, err = c.SendChat(context.Background(), "p", "   ")
	assert.ErrorIs(t, err, target.ErrInvalidRequest)
	_, err = c.CreateProject(context.Background(), "")
	assert.ErrorIs(t, err, target.ErrInvalidRequest)
	assert.Zero(t, calls.Load())
}

func TestCreateAndGetProject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /projects", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Create a todo app", body["description"])
		assert.Equal(t, "instant", body["mode"])
		_, _ = w.Write([]byte(`{"id":"proj-9"}`))
	})
	mux.HandleFunc("GET /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proj-9", r.PathValue("id"))
		_, _ = w.Write([]byte(`{"id":"proj-9","link":"https://example.test/p/proj-9"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := target.NewClient(srv.URL, "tok", time.Second)
	p, err := c.CreateProject(context.Background(), "Create a todo app")
	require.NoError(t, err)
	assert.Equal(t, "proj-9", p.ID)

	p, err = c.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/p/proj-9", p.Link)
}

func TestCreateProject_MissingIDIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := target.NewClient(srv.URL, "", time.Second).CreateProject(context.Background(), "x")
	assert.ErrorIs(t, err, target.ErrTargetUnavailable)
}

func TestRegistry(t *testing.T) {
	r := target.NewRegistry(nil, "", time.Second)
	assert.Equal(t, target.DefaultVersions, r.Versions())
	assert.False(t, r.HasToken())
	assert.True(t, r.Allowed("http://localhost:8000/"))
	assert.False(t, r.Allowed("http://evil.test"))

	_, err := r.Client("http://evil.test")
	assert.ErrorIs(t, err, target.ErrUnknownVersion)

	c, err := r.Client("https://api.gpt-engineer.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://api.gpt-engineer.com", c.SystemVersion())

	custom := target.NewRegistry([]string{" http://a ", "http://a/", "http://b"}, "tok", 0)
	assert.Equal(t, []string{"http://a", "http://b"}, custom.Versions())
	assert.True(t, custom.HasToken())
}
