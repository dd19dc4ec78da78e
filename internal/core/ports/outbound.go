package ports

import (
	"context"
	"io"

	"github.com/vportnov/briefly/internal/core/domain"
)

// SummaryRepository is the persistence port. InsertOrReplace must be durable
// before it returns: the job controller uses it for checkpointing. Callers
// guarantee at most one concurrent writer per summary id.
type SummaryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Summary, error)
	InsertOrReplace(ctx context.Context, summary *domain.Summary) error
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Summary, error)
}

// Summarizer is the remote summarization provider behind the retrying
// client. Implementations classify transport failures before returning them.
type Summarizer interface {
	Summarize(ctx context.Context, req domain.SummarizeRequest) (domain.SummarizeResponse, error)
}

// Sectioner splits oversized documents into independently summarizable
// sections. Section is pure and deterministic.
type Sectioner interface {
	Threshold() int
	Section(text string) []domain.DocumentSection
}

// MessageQueue dispatches summarize jobs and per-job control signals between
// the API and worker processes.
type MessageQueue interface {
	PublishSummarizeRequested(ctx context.Context, summaryID string) error
	SubscribeSummarizeRequested(ctx context.Context, handler func(context.Context, string) error) error
	PublishJobSignal(ctx context.Context, jobID string, signal domain.JobSignal) error
	SubscribeJobSignals(ctx context.Context, handler func(jobID string, signal domain.JobSignal)) error
}

// ObjectStorage archives original uploaded documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// UsageTracker is notified once per successful provider summarize call.
type UsageTracker interface {
	RecordSummarize()
}

// ProgressNotifier receives progress snapshots and terminal notifications
// for any host progress surface.
type ProgressNotifier interface {
	SetProgress(jobID string, percent float64, current, total int, paused bool)
	SectionFinished(jobID string, outcome string)
	JobCompleted(jobID string)
	JobFailed(jobID string, err error)
}
