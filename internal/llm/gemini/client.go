package gemini

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
)

const (
	Name         = "gemini"
	DefaultModel = "gemini-pro"
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client structures text with the Gemini generateContent API. A client is
// opened per call and closed afterwards.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is not set", common.ErrInvalidInput)
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
	return &Client{cfg: cfg, logger: logger}, nil
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return "", common.NewExtractionError(common.KindProvider, "gemini client", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.cfg.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(float32(c.cfg.Temperature)),
		MaxOutputTokens: ptrInt32(int32(c.cfg.MaxTokens)),
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.NewExtractionError(common.KindProvider, "gemini generate content", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", common.NewExtractionError(common.KindProvider, "gemini returned no candidates", nil)
	}

	out := strings.TrimSpace(firstText(resp))
	c.logger.Info("llm.gemini.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"model", c.cfg.Model,
		"reply_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Healthy counts tokens for a short probe, which needs a valid key and model.
func (c *Client) Healthy(ctx context.Context) error {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return common.NewExtractionError(common.KindProvider, "gemini client", err)
	}
	defer cl.Close()

	if _, err := cl.GenerativeModel(c.cfg.Model).CountTokens(ctx, genai.Text("Test")); err != nil {
		return common.NewExtractionError(common.KindProvider, "gemini health probe", err)
	}
	return nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }

var (
	_ llm.Generator     = (*Client)(nil)
	_ llm.HealthChecker = (*Client)(nil)
)
