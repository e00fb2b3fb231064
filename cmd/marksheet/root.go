package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg      *common.Config
	logger   *slog.Logger
	levelVar = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "marksheet",
	Short: "Extract structured marksheet data with OCR and an LLM",
	Long: `marksheet turns scanned marksheets (PDF, JPEG, PNG) into structured records.

Each document goes through four stages:
  - OCR with tesseract (text-first for PDFs)
  - LLM structuring into candidate, subject and result sections
  - per-field confidence recalibration against the OCR evidence
  - schema validation and normalization`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./marksheet.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "", "log format: text or json (overrides config)",
	)

	rootCmd.AddCommand(extractCmd, batchCmd, serveCmd, healthCmd, ocrCmd, runsCmd, configCmd, versionCmd)
}

// loadRuntime loads configuration and builds the process logger before any command runs.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	c, err := common.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	cfg = c
	levelVar.Set(common.ParseLevel(c.Log.Level))
	logger = common.NewLevelLogger(cmd.ErrOrStderr(), levelVar, c.Log.Format)
	slog.SetDefault(logger)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
