package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/confidence"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ocr"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
	"github.com/joseph-ayodele/marksheet-extractor/internal/validate"
)

// Degraded stage names reported in Result.Degraded.
const (
	StageRecalibration = "recalibration"
	StageValidation    = "validation"
)

// Structurer turns recognized text into a draft record.
type Structurer interface {
	Structure(ctx context.Context, text string, tokens map[string]float64) (draft.Section, error)
	ModelIdentifier() string
}

// Result is the outcome of one successful run.
type Result struct {
	Record            record.ExtractedRecord `json:"data"`
	ModelIdentifier   string                 `json:"model_used"`
	ConfidenceSummary map[string]float64     `json:"confidence_summary"`
	Degraded          []string               `json:"degraded,omitempty"`
	RunID             uuid.UUID              `json:"run_id"`
	Elapsed           time.Duration          `json:"-"`
}

// Processor runs recognition, structuring, recalibration and validation in
// that order. Only recognition and structuring failures abort a run.
type Processor struct {
	logger     *slog.Logger
	recognizer ocr.Recognizer
	structurer Structurer
	engine     *confidence.Engine
	validator  *validate.Validator
	files      *common.FileValidator
	repo       repository.ExtractionRepository
}

type Option func(*Processor)

// WithRepository records every run, failed or not, in repo.
func WithRepository(repo repository.ExtractionRepository) Option {
	return func(p *Processor) { p.repo = repo }
}

// WithFileValidator rejects inputs before recognition.
func WithFileValidator(v *common.FileValidator) Option {
	return func(p *Processor) { p.files = v }
}

func WithEngine(e *confidence.Engine) Option {
	return func(p *Processor) {
		if e != nil {
			p.engine = e
		}
	}
}

func NewProcessor(logger *slog.Logger, rec ocr.Recognizer, st Structurer, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:     logger,
		recognizer: rec,
		structurer: st,
		engine:     confidence.NewEngine(logger),
		validator:  validate.NewValidator(logger),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ModelIdentifier reports the structuring model as "<vendor>-<model>".
func (p *Processor) ModelIdentifier() string {
	return p.structurer.ModelIdentifier()
}

// Extract runs the pipeline over one document. filenameHint picks the media
// type from its extension; with no usable extension the content is sniffed.
func (p *Processor) Extract(ctx context.Context, data []byte, filenameHint string) (Result, error) {
	start := time.Now()
	runID := uuid.New()
	ctx = common.WithRequestID(ctx, runID.String())
	ctx = common.WithFilename(ctx, filenameHint)
	model := p.structurer.ModelIdentifier()

	p.logger.Info("pipeline.extract.start",
		"run_id", runID,
		"filename", filenameHint,
		"size", len(data),
		"model", model,
	)

	res, err := p.run(ctx, data, filenameHint)
	res.RunID = runID
	res.ModelIdentifier = model
	res.Elapsed = time.Since(start)

	if err != nil {
		p.logger.Error("pipeline.extract.failed",
			"run_id", runID,
			"filename", filenameHint,
			"kind", common.KindOf(err),
			"error", err,
			"elapsed_ms", res.Elapsed.Milliseconds(),
		)
		p.persist(ctx, filenameHint, res, err)
		return Result{RunID: runID, ModelIdentifier: model, Elapsed: res.Elapsed}, err
	}

	p.logger.Info("pipeline.extract.ok",
		"run_id", runID,
		"filename", filenameHint,
		"degraded", res.Degraded,
		"summary", res.ConfidenceSummary,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	p.persist(ctx, filenameHint, res, nil)
	return res, nil
}

func (p *Processor) run(ctx context.Context, data []byte, filename string) (Result, error) {
	if p.files != nil {
		if err := p.files.Validate(filename, data); err != nil {
			return Result{}, err
		}
	}

	// 1) recognition
	hint := constants.MediaTypeForExt(filepath.Ext(filename))
	rt, err := p.recognizer.Recognize(ctx, data, hint)
	if err != nil {
		var ee *common.ExtractionError
		if !errors.As(err, &ee) {
			err = common.NewExtractionError(common.KindRecognition, "text recognition failed", err)
		}
		return Result{}, err
	}
	if strings.TrimSpace(rt.Text) == "" {
		return Result{}, common.NewExtractionError(common.KindNoTextExtracted, "no text could be extracted from the document", nil)
	}
	p.logger.Debug("pipeline.recognize.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"method", rt.Method,
		"pages", rt.Pages,
		"tokens", len(rt.TokenConfidence),
		"warnings", len(rt.Warnings),
	)

	// 2) structuring
	d, err := p.structurer.Structure(ctx, rt.Text, rt.TokenConfidence)
	if err != nil {
		if common.KindOf(err) != common.KindStructuring {
			err = common.NewExtractionError(common.KindStructuring, "structuring failed", err)
		}
		return Result{}, err
	}

	var degraded []string

	// 3) recalibration; the unscored draft is kept on failure
	if scored, err := p.engine.Recalibrate(d, rt.TokenConfidence, rt.Text); err != nil {
		p.logger.Warn("pipeline.recalibrate.degraded", "req_id", common.RequestIDFromContext(ctx), "error", err)
		degraded = append(degraded, StageRecalibration)
	} else {
		d = scored
	}

	// 4) validation
	rec, reason := p.validator.Normalize(d)
	if reason != nil {
		p.logger.Warn("pipeline.validate.degraded", "req_id", common.RequestIDFromContext(ctx), "error", reason)
		degraded = append(degraded, StageValidation)
	}

	return Result{
		Record:            rec,
		ConfidenceSummary: rec.Summary(),
		Degraded:          degraded,
	}, nil
}

// persist stores the run. Store failures are logged and never change the result.
func (p *Processor) persist(ctx context.Context, filename string, res Result, runErr error) {
	if p.repo == nil {
		return
	}
	run := repository.ExtractionRun{
		ID:        res.RunID,
		Filename:  filename,
		Model:     res.ModelIdentifier,
		Degraded:  res.Degraded,
		ElapsedMS: res.Elapsed.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case runErr != nil:
		run.Status = constants.RunStatusFailed
		run.ErrorKind = string(common.KindOf(runErr))
		run.ErrorDetail = common.DetailOf(runErr)
	case len(res.Degraded) > 0:
		run.Status = constants.RunStatusDegraded
	default:
		run.Status = constants.RunStatusSucceeded
	}
	if runErr == nil {
		if b, err := json.Marshal(res.Record); err == nil {
			run.Record = b
		}
		if b, err := json.Marshal(res.ConfidenceSummary); err == nil {
			run.Summary = b
		}
	}

	// the run context may already be cancelled; the write gets its own deadline
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.repo.Save(saveCtx, run); err != nil {
		p.logger.Error("pipeline.persist.failed", "run_id", res.RunID, "error", err)
	}
}
