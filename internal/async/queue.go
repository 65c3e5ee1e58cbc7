package async

import (
	"context"
	"time"
)

// Job is one OCR output file waiting to be processed. Extend as needed
// later (priority, retry, trace).
type Job struct {
	Path        string
	BatchID     string
	SubmittedAt time.Time
}

// Handler processes one job. It must be safe for concurrent use; the queue
// runs one handler invocation per worker at a time.
type Handler func(ctx context.Context, job Job)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
