package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/pipeline"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract one marksheet and print the result as JSON",
	Long: `Run a single document through OCR, LLM structuring, confidence
recalibration and validation, then print the extraction response.

On failure an error document with the failure kind is printed instead and
the command exits non-zero.

Examples:
  marksheet extract scan.pdf
  marksheet extract photo.jpg --out result.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			return common.WrapError(err, "read "+path)
		}

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		name := filepath.Base(path)
		res, err := a.proc.Extract(ctx, data, name)
		if err != nil {
			if werr := writeJSON(cmd.OutOrStdout(), pipeline.NewErrorResponse(err)); werr != nil {
				logger.Warn("write error response failed", "error", werr)
			}
			return err
		}

		resp := pipeline.NewExtractResponse(res, name, data)
		if extractOut == "" {
			return writeJSON(cmd.OutOrStdout(), resp)
		}
		var buf bytes.Buffer
		if err := writeJSON(&buf, resp); err != nil {
			return err
		}
		if err := os.WriteFile(extractOut, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write %s: %w", extractOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (run %s)\n", extractOut, resp.RunID)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOut, "out", "", "write the JSON response to this file instead of stdout")
}
