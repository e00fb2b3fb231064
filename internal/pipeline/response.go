package pipeline

import (
	"time"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
)

// FileInfo describes the input of a single extraction.
type FileInfo struct {
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

// ExtractResponse is the JSON document printed for a single extraction.
type ExtractResponse struct {
	Status            string                 `json:"status"`
	Data              record.ExtractedRecord `json:"data"`
	ConfidenceSummary map[string]float64     `json:"confidence_summary"`
	Degraded          []string               `json:"degraded,omitempty"`
	ProcessingTime    float64                `json:"processing_time"`
	ModelUsed         string                 `json:"model_used"`
	RunID             string                 `json:"run_id"`
	FileInfo          FileInfo               `json:"file_info"`
	Timestamp         float64                `json:"timestamp"`
}

// NewExtractResponse wraps res with the input description.
func NewExtractResponse(res Result, filename string, data []byte) ExtractResponse {
	return ExtractResponse{
		Status:            "success",
		Data:              res.Record,
		ConfidenceSummary: res.ConfidenceSummary,
		Degraded:          res.Degraded,
		ProcessingTime:    res.Elapsed.Seconds(),
		ModelUsed:         res.ModelIdentifier,
		RunID:             res.RunID.String(),
		FileInfo: FileInfo{
			Filename:    filename,
			Size:        len(data),
			ContentType: common.SniffMediaType(data),
		},
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	}
}

// ErrorResponse is printed when a run fails.
type ErrorResponse struct {
	Status    string  `json:"status"`
	Kind      string  `json:"kind,omitempty"`
	Message   string  `json:"message"`
	Detail    string  `json:"detail,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Status:    "error",
		Kind:      string(common.KindOf(err)),
		Message:   err.Error(),
		Detail:    common.DetailOf(err),
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	}
}
