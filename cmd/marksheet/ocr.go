package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ocr"
)

var ocrJSON bool

// ocrStats summarizes the token confidences of one recognition.
type ocrStats struct {
	File          string   `json:"file"`
	Method        string   `json:"method"`
	Pages         int      `json:"pages"`
	Chars         int      `json:"chars"`
	Tokens        int      `json:"tokens"`
	MeanConf      float64  `json:"mean_confidence"`
	MinConf       float64  `json:"min_confidence"`
	LowConfTokens []string `json:"low_confidence_tokens,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Text          string   `json:"text"`
}

var ocrCmd = &cobra.Command{
	Use:   "ocr FILE",
	Short: "Run OCR only and print the text with token statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return common.WrapError(err, "read "+path)
		}
		if err := common.NewFileValidator(cfg.Upload).Validate(filepath.Base(path), data); err != nil {
			return err
		}

		rt, err := ocr.NewExtractor(cfg.OCR, logger).Recognize(cmd.Context(), data, common.SniffMediaType(data))
		if err != nil {
			return err
		}
		st := summarize(filepath.Base(path), rt)
		if ocrJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, st.Text)
		fmt.Fprintln(w, "---")
		fmt.Fprintf(w, "method=%s pages=%d chars=%d tokens=%d mean_conf=%.3f min_conf=%.3f\n",
			st.Method, st.Pages, st.Chars, st.Tokens, st.MeanConf, st.MinConf)
		if len(st.LowConfTokens) > 0 {
			fmt.Fprintf(w, "low confidence (<0.6): %v\n", st.LowConfTokens)
		}
		for _, warn := range st.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		return nil
	},
}

func summarize(name string, rt ocr.RecognizedText) ocrStats {
	st := ocrStats{
		File:     name,
		Method:   rt.Method,
		Pages:    rt.Pages,
		Chars:    len([]rune(rt.Text)),
		Tokens:   len(rt.TokenConfidence),
		Warnings: rt.Warnings,
		Text:     rt.Text,
	}
	if st.Tokens == 0 {
		return st
	}
	st.MinConf = 1
	var sum float64
	for tok, c := range rt.TokenConfidence {
		sum += c
		if c < st.MinConf {
			st.MinConf = c
		}
		if c < 0.6 {
			st.LowConfTokens = append(st.LowConfTokens, tok)
		}
	}
	sort.Strings(st.LowConfTokens)
	st.MeanConf = sum / float64(st.Tokens)
	return st
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrJSON, "json", false, "print the result as JSON")
}
