package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
)

func TestDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://host:1/ "}, nil)
	assert.Equal(t, "ollama-llama3", llm.ModelIdentifier(c))
	assert.Equal(t, "http://host:1", c.cfg.BaseURL)
}

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Model: "llama3", Response: ` {"subjects": []} `, Done: true})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Temperature: 0.2, MaxTokens: 100}, nil)
	out, err := c.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"subjects": []}`, out)

	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "the prompt", got.Prompt)
	assert.Equal(t, llm.SystemPrompt, got.System)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, 100, got.Options.NumPredict)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "model error", status: http.StatusOK, body: `{"error":"model not found"}`},
		{name: "empty response", status: http.StatusOK, body: `{"model":"llama3","response":"  ","done":true}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}, nil).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrProvider)
			if tt.name == "model error" {
				assert.Contains(t, err.Error(), "model not found")
			}
		})
	}
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/show" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "llama3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(Config{BaseURL: srv.URL}, nil).Healthy(context.Background()))
	err := NewClient(Config{BaseURL: srv.URL, Model: "missing"}, nil).Healthy(context.Background())
	assert.ErrorIs(t, err, common.ErrProvider)
	assert.Contains(t, err.Error(), "model missing is not pulled")
	assert.True(t, llm.IsStatus(err, http.StatusNotFound))
}
