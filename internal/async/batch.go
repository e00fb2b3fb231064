package async

import (
	"context"
	"fmt"
	"time"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
)

// Input is one document of a batch.
type Input struct {
	Filename string
	Data     []byte
}

// BatchItem is a successful batch entry.
type BatchItem struct {
	Filename          string                  `json:"filename"`
	Status            string                  `json:"status"`
	Data              *record.ExtractedRecord `json:"data,omitempty"`
	ConfidenceSummary map[string]float64      `json:"confidence_summary,omitempty"`
	Degraded          []string                `json:"degraded,omitempty"`
	ModelUsed         string                  `json:"model_used,omitempty"`
	RunID             string                  `json:"run_id,omitempty"`
}

// BatchError is a failed batch entry.
type BatchError struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error"`
}

// BatchResult aggregates a batch. Results and Errors follow input order.
type BatchResult struct {
	Status         string       `json:"status"`
	Total          int          `json:"total_files"`
	Successful     int          `json:"successful"`
	Failed         int          `json:"failed"`
	Results        []BatchItem  `json:"results"`
	Errors         []BatchError `json:"errors"`
	ProcessingTime float64      `json:"processing_time"`
}

// RunBatch extracts every input on q and waits for all of them. Batches larger
// than maxSize (when positive) or empty batches are rejected before any work
// starts. A failing input never stops the others.
func RunBatch(ctx context.Context, q Queue, inputs []Input, maxSize int) (BatchResult, error) {
	start := time.Now()
	if len(inputs) == 0 {
		return BatchResult{}, common.NewAppError("BATCH_EMPTY", "no files provided", common.ErrInvalidInput)
	}
	if maxSize > 0 && len(inputs) > maxSize {
		return BatchResult{}, common.NewAppError("BATCH_TOO_LARGE",
			fmt.Sprintf("too many files: %d given, maximum %d allowed", len(inputs), maxSize), common.ErrInvalidInput)
	}

	done := make(chan Outcome, len(inputs))
	outcomes := make([]*Outcome, len(inputs))
	pending := 0
	for i, in := range inputs {
		err := q.Enqueue(ctx, Job{Filename: in.Filename, Data: in.Data, Done: done, Index: i})
		if err != nil {
			outcomes[i] = &Outcome{Index: i, Filename: in.Filename, Err: err}
			continue
		}
		pending++
	}

collect:
	for pending > 0 {
		select {
		case o := <-done:
			outcomes[o.Index] = &o
			pending--
		case <-ctx.Done():
			for i, o := range outcomes {
				if o == nil {
					outcomes[i] = &Outcome{Index: i, Filename: inputs[i].Filename, Err: ctx.Err()}
				}
			}
			break collect
		}
	}

	res := aggregate(outcomes)
	res.ProcessingTime = time.Since(start).Seconds()
	return res, nil
}

func aggregate(outcomes []*Outcome) BatchResult {
	res := BatchResult{
		Status:  "completed",
		Total:   len(outcomes),
		Results: []BatchItem{},
		Errors:  []BatchError{},
	}
	for _, o := range outcomes {
		if o.Err != nil {
			res.Errors = append(res.Errors, BatchError{
				Filename: o.Filename,
				Kind:     string(common.KindOf(o.Err)),
				Error:    common.DetailOf(o.Err),
			})
			continue
		}
		rec := o.Result.Record
		res.Results = append(res.Results, BatchItem{
			Filename:          o.Filename,
			Status:            constants.ItemStatusSuccess,
			Data:              &rec,
			ConfidenceSummary: o.Result.ConfidenceSummary,
			Degraded:          o.Result.Degraded,
			ModelUsed:         o.Result.ModelIdentifier,
			RunID:             o.Result.RunID.String(),
		})
	}
	res.Successful = len(res.Results)
	res.Failed = len(res.Errors)
	return res
}
