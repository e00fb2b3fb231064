package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// ExtractionRun is one stored pipeline run, successful or not.
type ExtractionRun struct {
	ID          uuid.UUID           `json:"id"`
	Filename    string              `json:"filename"`
	Status      constants.RunStatus `json:"status"`
	Model       string              `json:"model"`
	Record      json.RawMessage     `json:"record,omitempty"`
	Summary     json.RawMessage     `json:"summary,omitempty"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	ErrorDetail string              `json:"error_detail,omitempty"`
	Degraded    []string            `json:"degraded,omitempty"`
	ElapsedMS   int64               `json:"elapsed_ms"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ExtractionRepository stores extraction runs. Get returns common.ErrNotFound
// for an unknown ID. List returns the newest runs first.
type ExtractionRepository interface {
	Save(ctx context.Context, run ExtractionRun) error
	Get(ctx context.Context, id uuid.UUID) (*ExtractionRun, error)
	List(ctx context.Context, limit int) ([]ExtractionRun, error)
	Ping(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
