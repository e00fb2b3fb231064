package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_, _ = w.Write([]byte(`{"echo":"` + in["a"] + `"}`))
	}))
	defer srv.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, PostJSON(context.Background(), nil, srv.URL, map[string]string{"a": "b"}, &out, nil))
	assert.Equal(t, "b", out.Echo)

	require.NoError(t, PostJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"a": "b"}, nil, nil))
}

func TestPostJSON_VendorErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "string error member", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantMsg: "boom"},
		{name: "error member on 200", status: http.StatusOK, body: `{"error":"model not found"}`, wantMsg: "model not found"},
		{name: "object error member", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"auth"}}`, wantMsg: "bad key"},
		{name: "plain text body", status: http.StatusBadGateway, body: "upstream down", wantMsg: "upstream down"},
		{name: "empty body", status: http.StatusServiceUnavailable, body: "", wantMsg: "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]any
			err := PostJSON(context.Background(), nil, srv.URL, map[string]string{}, &out, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrProvider)
			assert.True(t, IsStatus(err, tt.status))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPostJSON_LongBodyIsTruncatedOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 300)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), nil, srv.URL, map[string]string{}, nil, nil)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Less(t, len(err.Error()), 300)
}

func TestPostJSON_BadReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), nil, srv.URL, map[string]string{}, &out, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrProvider)
	assert.Contains(t, err.Error(), "decode response")
}

func TestPostJSON_EncodeError(t *testing.T) {
	err := PostJSON(context.Background(), nil, "http://unused", map[string]any{"c": make(chan int)}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode request")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"aé", 2, "a..."},
		{"日本語", 4, "日..."},
		{"日本語", 6, "日本..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
