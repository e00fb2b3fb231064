package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
)

const (
	Name           = "ollama"
	DefaultModel   = "llama3"
	DefaultBaseURL = "http://localhost:11434"
)

type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to a local Ollama server. No API key is needed.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  c.cfg.Model,
		System: llm.SystemPrompt,
		Prompt: prompt,
		Format: "json",
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			NumPredict:  c.cfg.MaxTokens,
		},
	}

	var out generateResponse
	if err := llm.PostJSON(ctx, c.http, c.cfg.BaseURL+"/api/generate", req, &out, c.logger); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		c.logger.Warn("llm.ollama.empty_response", "model", out.Model, "done", out.Done)
		return "", common.NewExtractionError(common.KindProvider, "ollama returned an empty response", nil)
	}
	return strings.TrimSpace(out.Response), nil
}

// Healthy asks the server to describe the configured model.
func (c *Client) Healthy(ctx context.Context) error {
	body := map[string]string{"model": c.cfg.Model}
	err := llm.PostJSON(ctx, c.http, c.cfg.BaseURL+"/api/show", body, nil, c.logger)
	if llm.IsStatus(err, http.StatusNotFound) {
		return common.NewExtractionError(common.KindProvider, "model "+c.cfg.Model+" is not pulled", err)
	}
	return err
}

var (
	_ llm.Generator     = (*Client)(nil)
	_ llm.HealthChecker = (*Client)(nil)
)
