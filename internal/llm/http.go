package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

// maxErrorBody bounds how much of a vendor reply ends up in an error.
const maxErrorBody = 200

// APIError is a vendor failure reported over HTTP, either as a non-2xx status
// or as an "error" member in an otherwise successful reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// PostJSON posts body to url and decodes the reply into out (which may be
// nil). Every failure is a ProviderError; vendor-reported failures wrap an
// *APIError carrying the status and the vendor message.
func PostJSON(ctx context.Context, client *http.Client, url string, body, out any, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return common.NewExtractionError(common.KindProvider, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return common.NewExtractionError(common.KindProvider, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "url", url, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return common.NewExtractionError(common.KindProvider, "send request", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.http.close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.NewExtractionError(common.KindProvider, "read response", err)
	}
	logger.Debug("llm.http.response",
		"req_id", reqID,
		"url", url,
		"status", resp.StatusCode,
		"request_bytes", len(bs),
		"response_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if apiErr := replyError(resp.StatusCode, raw); apiErr != nil {
		logger.Warn("llm.http.vendor_error", "req_id", reqID, "url", url, "status", apiErr.Status, "message", apiErr.Message)
		return common.NewExtractionError(common.KindProvider, "vendor rejected request", apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.NewExtractionError(common.KindProvider, "decode response: "+truncate(string(raw), maxErrorBody), err)
	}
	return nil
}

// replyError returns nil for a 2xx reply without an "error" member. The
// member may be a string (Ollama) or an object with a message (OpenAI style).
func replyError(status int, raw []byte) *APIError {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	_ = json.Unmarshal(raw, &env)

	msg := ""
	if len(env.Error) > 0 && string(env.Error) != "null" {
		var s string
		var obj struct {
			Message string `json:"message"`
		}
		switch {
		case json.Unmarshal(env.Error, &s) == nil:
			msg = s
		case json.Unmarshal(env.Error, &obj) == nil && obj.Message != "":
			msg = obj.Message
		default:
			msg = string(env.Error)
		}
	}

	if status/100 == 2 && msg == "" {
		return nil
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: truncate(msg, maxErrorBody)}
}

// IsStatus reports whether err carries an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
