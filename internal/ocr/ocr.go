package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

// Extractor recognizes marksheet text with tesseract and poppler.
type Extractor struct {
	cfg       common.OCRConfig
	runner    Runner
	logger    *slog.Logger
	pageCount func(data []byte) (int, error)
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// NewExtractor fills unset config with defaults.
func NewExtractor(cfg common.OCRConfig, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	def := common.DefaultConfig().OCR
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = def.Pdftotext
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = def.Pdftoppm
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = def.Tesseract
	}
	if cfg.Lang == "" {
		cfg.Lang = def.Lang
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.PDFTextConfidence <= 0 || cfg.PDFTextConfidence > 1 {
		cfg.PDFTextConfidence = def.PDFTextConfidence
	}
	e := &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		logger:    logger,
		pageCount: pdfPageCount,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recognize implements Recognizer.
func (e *Extractor) Recognize(ctx context.Context, data []byte, mediaType string) (RecognizedText, error) {
	start := time.Now()
	if len(data) == 0 {
		return RecognizedText{}, common.NewExtractionError(common.KindRecognition, "empty input", nil)
	}
	if mediaType == "" {
		mediaType = common.SniffMediaType(data)
	}

	tmpDir, err := os.MkdirTemp("", "marksheet-ocr-*")
	if err != nil {
		return RecognizedText{}, common.NewExtractionError(common.KindRecognition, "create work dir", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.cleanup.failed", "dir", tmpDir, "error", err)
		}
	}()

	e.logger.Debug("ocr.recognize.start", "media_type", mediaType, "bytes", len(data))

	var res RecognizedText
	switch mediaType {
	case constants.MediaTypePDF:
		res, err = e.recognizePDF(ctx, data, tmpDir)
	case constants.MediaTypeJPEG, constants.MediaTypePNG:
		var path string
		path, err = writeInput(tmpDir, mediaType, data)
		if err == nil {
			res, err = e.recognizeImage(ctx, path)
		}
	default:
		err = fmt.Errorf("unsupported media type %q", mediaType)
	}
	if err != nil {
		e.logger.Error("ocr.recognize.failed", "media_type", mediaType, "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		var ee *common.ExtractionError
		if errors.As(err, &ee) {
			return RecognizedText{}, err
		}
		return RecognizedText{}, common.NewExtractionError(common.KindRecognition, "text recognition failed", err)
	}

	e.logger.Info("ocr.recognize.ok",
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"tokens", len(res.TokenConfidence),
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Healthy checks that the tesseract binary runs.
func (e *Extractor) Healthy(ctx context.Context) error {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, "--version")
	if err != nil {
		return fmt.Errorf("tesseract unavailable: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(out)+string(errb)), "\n")
	e.logger.Debug("ocr.health.ok", "version", version)
	return nil
}

func writeInput(dir, mediaType string, data []byte) (string, error) {
	ext := ".png"
	switch mediaType {
	case constants.MediaTypeJPEG:
		ext = ".jpg"
	case constants.MediaTypePDF:
		ext = ".pdf"
	}
	path := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write input: %w", err)
	}
	return path, nil
}

func pdfPageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), nil)
}
