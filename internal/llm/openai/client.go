package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
)

const (
	Name         = "openai"
	DefaultModel = "gpt-3.5-turbo"
)

// Config holds configuration for the OpenAI chat client.
type Config struct {
	APIKey      string
	Model       string // gpt-3.5-turbo when empty
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
	BaseURL     string       // optional (tests, proxies)
	HTTPClient  *http.Client // optional (tests)
}

// Client structures text with the chat completions API.
type Client struct {
	cfg    Config
	client oai.Client
	logger *slog.Logger
}

// NewClient fails with a CONFIG_ERROR when no API key is configured.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is not set", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{cfg: cfg, client: oai.NewClient(opts...), logger: logger}, nil
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.cfg.Model }

// Generate sends the prompt as a user message after the extraction system message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.cfg.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(llm.SystemPrompt),
			oai.UserMessage(prompt),
		},
		Temperature: oai.Float(c.cfg.Temperature),
		MaxTokens:   oai.Int(int64(c.cfg.MaxTokens)),
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", common.NewExtractionError(common.KindProvider, "openai returned no choices", nil)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Info("llm.openai.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"model", c.cfg.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Healthy looks up the configured model, which also verifies the API key.
func (c *Client) Healthy(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.cfg.Model); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("openai error (status %d)", apiErr.StatusCode)
		if apiErr.Message != "" {
			msg = fmt.Sprintf("openai error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return common.NewExtractionError(common.KindProvider, msg, err)
	}
	return common.NewExtractionError(common.KindProvider, "openai request failed", err)
}

var (
	_ llm.Generator     = (*Client)(nil)
	_ llm.HealthChecker = (*Client)(nil)
)
