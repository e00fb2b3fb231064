package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/llm/vendor"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ocr"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
	"github.com/joseph-ayodele/marksheet-extractor/internal/server"
)

// errUnhealthy makes the command exit non-zero after the report is printed.
var errUnhealthy = errors.New("one or more dependencies are unhealthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check OCR, LLM and store health once and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		probes := []server.Probe{server.OCRProbe(ocr.NewExtractor(cfg.OCR, logger).Healthy)}

		// Construction failures are reported as unhealthy services rather than aborting.
		if gen, err := vendor.New(cfg.LLM, logger); err != nil {
			probes = append(probes, failingProbe(server.ServiceLLM, err))
		} else {
			probes = append(probes, server.LLMProbe(gen))
		}
		repo, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			probes = append(probes, failingProbe(server.ServiceStore, err))
		} else {
			if repo != nil {
				defer repo.Close()
			}
			probes = append(probes, server.StoreProbe(repo, logger))
		}

		rep := server.NewHealthMonitor(nil, logger, 0, version, probes...).Check(ctx)
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.Healthy() {
			return errUnhealthy
		}
		return nil
	},
}

func failingProbe(name string, err error) server.Probe {
	return server.Probe{Name: name, Check: func(context.Context) error { return err }}
}
