package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/async"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/export"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ingest"
)

var batchXLSX string

var batchCmd = &cobra.Command{
	Use:   "batch FILE|DIR...",
	Short: "Extract several marksheets concurrently",
	Long: `Extract every supported file named on the command line. Directories are
walked recursively and hidden entries are skipped.

The batch is rejected when it holds more than batch.max_size files. Files are
processed by batch.workers workers; one failing file does not stop the rest.

Examples:
  marksheet batch a.pdf b.png
  marksheet batch ./scans --xlsx results.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		paths, err := ingest.CollectFiles(args, cfg.Upload.AllowedExtensions)
		if err != nil {
			return err
		}
		inputs := make([]async.Input, 0, len(paths))
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return common.WrapError(err, "read "+p)
			}
			inputs = append(inputs, async.Input{Filename: filepath.Base(p), Data: data})
		}

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		q := a.queue()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			q.Shutdown(sctx)
		}()

		res, err := async.RunBatch(ctx, q, inputs, cfg.Batch.MaxSize)
		if err != nil {
			return err
		}
		logger.Info("batch.done",
			"total", res.Total,
			"successful", res.Successful,
			"failed", res.Failed,
			"processing_time", res.ProcessingTime,
		)

		if batchXLSX != "" {
			b, err := export.NewService(a.repo, logger).BatchXLSX(res)
			if err != nil {
				return err
			}
			if err := os.WriteFile(batchXLSX, b, 0644); err != nil {
				return fmt.Errorf("write %s: %w", batchXLSX, err)
			}
			logger.Info("batch.export.ok", "output", batchXLSX, "bytes", len(b))
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "also write the batch as an XLSX workbook")
}
