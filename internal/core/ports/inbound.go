package ports

import (
	"context"

	"github.com/vportnov/briefly/internal/core/domain"
)

// SummarySubmitter is the inbound contract for accepting new work.
type SummarySubmitter interface {
	SubmitText(ctx context.Context, req domain.SummarizeRequest) (*domain.Summary, error)
	SubmitDocument(ctx context.Context, filename, mimeType string, data []byte, req domain.SummarizeRequest) (*domain.Summary, error)
}

// SummaryProcessor is the inbound contract for asynchronous job processing.
type SummaryProcessor interface {
	ProcessByID(ctx context.Context, summaryID string) error
}

// JobControl is the external pause/resume/cancel signal surface backed by the
// shared per-job flag registry.
type JobControl interface {
	Pause(jobID string)
	Resume(jobID string)
	Cancel(jobID string)
	IsPaused(jobID string) bool
	IsCancelled(jobID string) bool
}
