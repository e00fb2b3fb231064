package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
)

// Structurer turns recognized text into a repaired draft record.
type Structurer struct {
	gen    Generator
	logger *slog.Logger
}

func NewStructurer(gen Generator, logger *slog.Logger) *Structurer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Structurer{gen: gen, logger: logger}
}

// ModelIdentifier returns "<vendor>-<model>" for the wrapped generator.
func (s *Structurer) ModelIdentifier() string {
	return ModelIdentifier(s.gen)
}

// Generator exposes the wrapped generator, e.g. for health checks.
func (s *Structurer) Generator() Generator {
	return s.gen
}

// Structure prompts the model and parses its reply. Every error is a
// StructuringError wrapping the ProviderError, ResponseFormatError or
// InvalidJSON that caused it.
func (s *Structurer) Structure(ctx context.Context, text string, tokens map[string]float64) (draft.Section, error) {
	start := time.Now()
	prompt := BuildPrompt(text, tokens)
	rid := common.RequestIDFromContext(ctx)

	s.logger.Info("llm.generate.start",
		"req_id", rid,
		"filename", common.FilenameFromContext(ctx),
		"vendor", s.gen.Name(),
		"model", s.gen.Model(),
		"text_len", len(text),
		"tokens", len(tokens),
		"prompt_len", len(prompt),
	)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		var ee *common.ExtractionError
		if !errors.As(err, &ee) {
			err = common.NewExtractionError(common.KindProvider, s.gen.Name()+" request failed", err)
		}
		s.logger.Error("llm.generate.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewExtractionError(common.KindStructuring, "structuring failed", err)
	}

	sec, err := ParseResponse(raw)
	if err != nil {
		s.logger.Error("llm.parse.failed",
			"req_id", rid,
			"kind", common.KindOf(err),
			"error", err,
			"reply_len", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewExtractionError(common.KindStructuring, "structuring failed", err)
	}

	s.logger.Info("llm.generate.ok",
		"req_id", rid,
		"reply_len", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sec, nil
}
