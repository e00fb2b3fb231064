package main

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/marksheet-extractor/internal/async"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm/vendor"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ocr"
	"github.com/joseph-ayodele/marksheet-extractor/internal/pipeline"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
	"github.com/joseph-ayodele/marksheet-extractor/internal/server"
)

// app is the wired extraction stack shared by the commands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	ocr       *ocr.Extractor
	gen       llm.Generator
	repo      repository.ExtractionRepository
	validator *common.FileValidator
	proc      *pipeline.Processor
}

// newApp wires OCR, the configured LLM vendor, the optional store and the processor.
func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	gen, err := vendor.New(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		ocr:       ocr.NewExtractor(cfg.OCR, logger),
		gen:       gen,
		repo:      repo,
		validator: common.NewFileValidator(cfg.Upload),
	}
	opts := []pipeline.Option{pipeline.WithFileValidator(a.validator)}
	if repo != nil {
		opts = append(opts, pipeline.WithRepository(repo))
	}
	a.proc = pipeline.NewProcessor(logger, a.ocr, llm.NewStructurer(gen, logger), opts...)
	logger.Info("app.ready",
		"model", a.proc.ModelIdentifier(),
		"store", storeDriver(cfg.Database.Driver),
	)
	return a, nil
}

// queue starts a worker pool over the processor sized from the batch config.
func (a *app) queue() *async.ProcessorQueue {
	return async.NewProcessorQueue(a.proc, a.logger,
		async.WithWorkers(a.cfg.Batch.Workers),
		async.WithQueueSize(a.cfg.Batch.QueueSize),
	)
}

func (a *app) probes() []server.Probe {
	return []server.Probe{
		server.OCRProbe(a.ocr.Healthy),
		server.LLMProbe(a.gen),
		server.StoreProbe(a.repo, a.logger),
	}
}

func (a *app) Close() {
	if a.repo == nil {
		return
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}

func storeDriver(d string) string {
	if d == "" {
		return "none"
	}
	return d
}
