package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/marksheet-extractor/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for extraction.
type Job struct {
	ID          uuid.UUID
	Filename    string
	Data        []byte
	SubmittedAt time.Time
	// Done receives the outcome when set. It must have room for the send;
	// workers never block on it.
	Done chan<- Outcome
	// Index is echoed back in the Outcome so batch callers can keep input order.
	Index int
}

// Outcome is the result of processing one Job.
type Outcome struct {
	JobID    uuid.UUID
	Index    int
	Filename string
	Result   pipeline.Result
	Err      error
}

// Extractor is the pipeline as seen by the workers.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filenameHint string) (pipeline.Result, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
