package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/async"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
)

// Service produces XLSX workbooks from batch results and stored runs.
type Service struct {
	repo   repository.ExtractionRepository
	logger *slog.Logger
}

// NewService accepts a nil repo; RunsXLSX then fails.
func NewService(repo repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

const (
	batchSheet = "Batch"
	runsSheet  = "Runs"
)

// row is one line of either workbook.
type row struct {
	filename string
	status   string
	model    string
	rec      *record.ExtractedRecord
	summary  map[string]float64
	err      string
}

func headers() []string {
	h := []string{"Filename", "Status", "Model", "Name", "Roll No", "Result", "Percentage"}
	for _, k := range record.SummaryKeys {
		h = append(h, "Confidence: "+k)
	}
	return append(h, "Error")
}

// BatchXLSX writes one row per batch input: successes first, then failures,
// each in input order.
func (s *Service) BatchXLSX(res async.BatchResult) ([]byte, error) {
	start := time.Now()
	rows := make([]row, 0, res.Total)
	for _, it := range res.Results {
		rows = append(rows, row{
			filename: it.Filename,
			status:   it.Status,
			model:    it.ModelUsed,
			rec:      it.Data,
			summary:  it.ConfidenceSummary,
		})
	}
	for _, e := range res.Errors {
		rows = append(rows, row{filename: e.Filename, status: constants.ItemStatusError, err: e.Error})
	}

	out, err := s.write(batchSheet, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"sheet", batchSheet,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// RunsXLSX exports the newest stored runs.
func (s *Service) RunsXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("runs export: store not configured")
	}
	start := time.Now()
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	rows := make([]row, 0, len(runs))
	for _, r := range runs {
		rw := row{filename: r.Filename, status: string(r.Status), model: r.Model, err: r.ErrorDetail}
		if len(r.Record) > 0 {
			var rec record.ExtractedRecord
			if err := json.Unmarshal(r.Record, &rec); err != nil {
				s.logger.Warn("export.runs.bad_record", "run_id", r.ID, "error", err)
			} else {
				rw.rec = &rec
			}
		}
		if len(r.Summary) > 0 {
			if err := json.Unmarshal(r.Summary, &rw.summary); err != nil {
				s.logger.Warn("export.runs.bad_summary", "run_id", r.ID, "error", err)
			}
		}
		rows = append(rows, rw)
	}

	out, err := s.write(runsSheet, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"sheet", runsSheet,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) write(sheet string, rows []row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close", "error", err)
		}
	}()

	// rename the default sheet so the workbook has exactly one
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	hdr := headers()
	for i, h := range hdr {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.filename)
		write(2, r.status)
		write(3, r.model)
		if r.rec != nil {
			write(4, cellValue(&r.rec.CandidateDetails.Name))
			write(5, cellValue(&r.rec.CandidateDetails.RollNo))
			write(6, cellValue(r.rec.OverallResult.Result))
			write(7, cellValue(r.rec.OverallResult.Percentage))
		}
		for j, k := range record.SummaryKeys {
			if v, ok := r.summary[k]; ok {
				write(8+j, v)
			}
		}
		write(len(hdr), truncate(r.err, 300))
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // filename
	_ = f.SetColWidth(sheet, "B", "C", 18) // status, model
	_ = f.SetColWidth(sheet, "D", "D", 28) // name
	_ = f.SetColWidth(sheet, "E", "G", 14)
	lastCol, _ := excelize.ColumnNumberToName(len(hdr))
	_ = f.SetColWidth(sheet, lastCol, lastCol, 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue writes numbers as numbers and everything else as text.
func cellValue(fv *record.FieldValue) any {
	if fv == nil || fv.Value == nil {
		return ""
	}
	switch v := fv.Value.(type) {
	case json.Number:
		if n, err := v.Float64(); err == nil {
			return n
		}
		return v.String()
	case float64, string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
