package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/ports"
)

const defaultPausePoll = 500 * time.Millisecond

// ProcessSummaryUseCase drives one summarize job from pending to a terminal
// state. Short documents go through a single provider call; documents above
// the sectioner threshold are split and processed by a bounded worker pool
// with a durable checkpoint after every finished section, so a redelivered
// job resumes instead of starting over.
type ProcessSummaryUseCase struct {
	repo       ports.SummaryRepository
	summarizer ports.Summarizer
	sectioner  ports.Sectioner
	registry   *JobRegistry
	events     *EventBroadcaster
	notifier   ports.ProgressNotifier
	logger     *slog.Logger
	workers    int
	pausePoll  time.Duration
	now        func() time.Time
}

func NewProcessSummaryUseCase(
	repo ports.SummaryRepository,
	summarizer ports.Summarizer,
	sectioner ports.Sectioner,
	registry *JobRegistry,
	events *EventBroadcaster,
	notifier ports.ProgressNotifier,
	logger *slog.Logger,
	workers int,
) *ProcessSummaryUseCase {
	if workers <= 0 {
		workers = 3
	}
	return &ProcessSummaryUseCase{
		repo:       repo,
		summarizer: summarizer,
		sectioner:  sectioner,
		registry:   registry,
		events:     events,
		notifier:   notifier,
		logger:     logger,
		workers:    workers,
		pausePoll:  defaultPausePoll,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ProcessSummaryUseCase) ProcessByID(ctx context.Context, id string) error {
	summary, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load summary %s: %w", id, err)
	}

	switch summary.ProcessingStatus {
	case domain.StatusCompleted, domain.StatusCancelled:
		// Redelivery of a finished job is a no-op.
		return nil
	}

	summary.ProcessingStatus = domain.StatusProcessing
	summary.UpdatedAt = uc.now()
	if err := uc.repo.InsertOrReplace(ctx, summary); err != nil {
		return fmt.Errorf("mark summary processing: %w", err)
	}

	var runErr error
	if len(summary.OriginalText) > uc.sectioner.Threshold() {
		runErr = uc.processSectioned(ctx, summary)
	} else {
		runErr = uc.processSingle(ctx, summary)
	}
	return uc.finish(ctx, summary, runErr)
}

func (uc *ProcessSummaryUseCase) processSingle(ctx context.Context, s *domain.Summary) error {
	if uc.registry.IsCancelled(s.ID) {
		return domain.ErrJobCancelled
	}

	resp, err := uc.summarizer.Summarize(ctx, uc.requestFor(s, s.OriginalText))
	if err != nil {
		return err
	}

	s.ApplyResponse(resp)
	uc.events.Publish(s.ID, domain.OverallSummaryReady{Summary: resp})
	s.MarkComplete(uc.now())
	if err := uc.repo.InsertOrReplace(ctx, s); err != nil {
		return fmt.Errorf("persist completed summary: %w", err)
	}
	return nil
}

// finish maps the run outcome onto the terminal state machine. Cancellation
// is a clean terminal state, not an error; a retryable failure is surfaced to
// the host wrapped as temporary so the job can be redelivered and resumed
// from its checkpoint.
func (uc *ProcessSummaryUseCase) finish(ctx context.Context, s *domain.Summary, runErr error) error {
	defer uc.registry.Clear(s.ID)

	switch {
	case runErr == nil:
		uc.events.Publish(s.ID, domain.ProcessingComplete{})
		uc.notifier.JobCompleted(s.ID)
		uc.logger.Info("summary_completed",
			"summary_id", s.ID,
			"sections", s.TotalSections,
			"confidence", s.Confidence)
		return nil

	case errors.Is(runErr, domain.ErrJobCancelled):
		s.MarkTerminal(domain.StatusCancelled, "cancelled by request", uc.now())
		if err := uc.repo.InsertOrReplace(ctx, s); err != nil {
			return fmt.Errorf("persist cancelled summary: %w", err)
		}
		uc.events.Publish(s.ID, domain.ProcessingError{Err: "cancelled by request"})
		uc.logger.Info("summary_cancelled", "summary_id", s.ID)
		return nil

	default:
		s.MarkTerminal(domain.StatusFailed, runErr.Error(), uc.now())
		if err := uc.repo.InsertOrReplace(ctx, s); err != nil {
			uc.logger.Error("terminal_state_persist_failed",
				"summary_id", s.ID, "error", err)
		}
		uc.events.Publish(s.ID, domain.ProcessingError{Err: runErr.Error()})
		uc.notifier.JobFailed(s.ID, runErr)
		uc.logger.Error("summary_failed",
			"summary_id", s.ID,
			"retryable", domain.IsRetryable(runErr),
			"error", runErr)
		if domain.IsRetryable(runErr) {
			return domain.WrapError(domain.ErrTemporary, "process summary", runErr)
		}
		return runErr
	}
}

func (uc *ProcessSummaryUseCase) requestFor(s *domain.Summary, text string) domain.SummarizeRequest {
	return domain.SummarizeRequest{
		Text:           text,
		Persona:        s.Persona,
		MaxLengthChars: s.MaxLengthChars,
		Language:       s.Language,
	}
}
