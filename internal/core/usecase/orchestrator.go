package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vportnov/briefly/internal/core/domain"
)

// sectionRun is the shared state of one sectioned job. Its mutex serializes
// every mutation of the summary entity and every checkpoint write, which is
// what makes the one-writer-per-id repository contract hold while several
// section workers run in parallel.
type sectionRun struct {
	uc *ProcessSummaryUseCase
	s  *domain.Summary

	mu      sync.Mutex
	stopped bool
	fatal   error
	lastErr error
}

func (uc *ProcessSummaryUseCase) processSectioned(ctx context.Context, s *domain.Summary) error {
	sections := uc.sectioner.Section(s.OriginalText)
	seedSections(s, sections)
	s.TotalSections = len(sections)
	s.IsPartial = true
	s.UpdatedAt = uc.now()
	if err := uc.repo.InsertOrReplace(ctx, s.Clone()); err != nil {
		return err
	}

	run := &sectionRun{uc: uc, s: s}
	run.mu.Lock()
	run.publishProgressLocked(false)
	run.mu.Unlock()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < uc.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				run.handleSection(ctx, idx, sections[idx])
			}
		}()
	}
	for idx := range sections {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if run.fatal != nil {
		return run.fatal
	}
	if err := run.waitWhileSuspended(ctx); err != nil {
		return err
	}
	if s.ProcessedSections == 0 {
		if run.lastErr != nil {
			return run.lastErr
		}
		return domain.WrapError(domain.ErrInvalidInput, "process sections",
			errors.New("sectioner produced no sections"))
	}

	mergeResp, err := uc.summarizer.Summarize(ctx, uc.requestFor(s, mergeInput(s.Sections)))
	if err != nil {
		return err
	}
	s.ApplyResponse(mergeResp)
	uc.events.Publish(s.ID, domain.OverallSummaryReady{Summary: mergeResp})
	s.MarkComplete(uc.now())
	return uc.repo.InsertOrReplace(ctx, s.Clone())
}

// handleSection summarizes one section and durably checkpoints the result
// before the worker moves on. A section that fails is recorded and skipped;
// the job only aborts on cancellation or a checkpoint write failure.
func (r *sectionRun) handleSection(ctx context.Context, idx int, source domain.DocumentSection) {
	if r.isStopped() {
		return
	}
	if err := r.waitWhileSuspended(ctx); err != nil {
		r.abort(err)
		return
	}

	sec := &r.s.Sections[idx]
	if sec.Status == domain.StatusCompleted {
		// Checkpointed by an earlier run of this job.
		return
	}

	r.mu.Lock()
	sec.Status = domain.StatusProcessing
	r.uc.events.Publish(r.s.ID, domain.SectionStarted{SectionID: sec.ID, Index: idx})
	r.mu.Unlock()

	started := time.Now()
	resp, err := r.uc.summarizer.Summarize(ctx, r.uc.requestFor(r.s, source.Content))
	elapsed := time.Since(started).Milliseconds()

	r.mu.Lock()
	if err != nil {
		sec.Status = domain.StatusFailed
		sec.Error = err.Error()
		sec.ProcessingTimeMs = elapsed
		r.lastErr = err
		r.uc.events.Publish(r.s.ID, domain.SectionFailed{SectionID: sec.ID, Err: err.Error()})
		r.uc.notifier.SectionFinished(r.s.ID, "failed")
		r.uc.logger.Warn("section_failed",
			"summary_id", r.s.ID, "section", idx, "error", err)
	} else {
		sec.Summary = resp.Summary
		sec.BulletPoints = resp.BulletPoints
		sec.ProcessingTimeMs = resp.ProcessingTimeMs
		sec.Status = domain.StatusCompleted
		r.s.ProcessedSections++
		r.uc.events.Publish(r.s.ID, domain.SectionCompleted{Section: *sec})
		r.uc.notifier.SectionFinished(r.s.ID, "completed")
	}
	r.s.UpdatedAt = r.uc.now()
	cpErr := r.uc.repo.InsertOrReplace(ctx, r.s.Clone())
	if cpErr == nil {
		r.publishProgressLocked(false)
	}
	r.mu.Unlock()

	if cpErr != nil {
		r.abort(cpErr)
	}
}

// waitWhileSuspended blocks at a section boundary while the job is paused,
// polling the registry and emitting paused progress snapshots. It returns
// ErrJobCancelled as soon as cancellation is observed.
func (r *sectionRun) waitWhileSuspended(ctx context.Context) error {
	for {
		if r.uc.registry.IsCancelled(r.s.ID) {
			return domain.ErrJobCancelled
		}
		if !r.uc.registry.IsPaused(r.s.ID) {
			return nil
		}
		r.mu.Lock()
		r.publishProgressLocked(true)
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return domain.Classify(ctx.Err())
		case <-time.After(r.uc.pausePoll):
		}
	}
}

func (r *sectionRun) publishProgressLocked(paused bool) {
	current, total := r.s.ProcessedSections, r.s.TotalSections
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	r.uc.events.Publish(r.s.ID, domain.ProgressUpdate{
		Current:    current,
		Total:      total,
		Percentage: percent,
		Paused:     paused,
	})
	r.uc.notifier.SetProgress(r.s.ID, percent, current, total, paused)
}

func (r *sectionRun) abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.fatal == nil {
		r.fatal = err
	}
}

func (r *sectionRun) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// seedSections rebuilds the per-section bookkeeping from the sectioner
// output, carrying over results already checkpointed under the same byte
// range so a resumed job skips finished work.
func seedSections(s *domain.Summary, sections []domain.DocumentSection) {
	done := s.CompletedSectionIndexes()
	out := make([]domain.SectionSummary, len(sections))
	processed := 0
	for i, sec := range sections {
		if prev, ok := done[sec.StartIndex]; ok && prev.EndIndex == sec.EndIndex {
			out[i] = prev
			processed++
			continue
		}
		out[i] = domain.SectionSummary{
			ID:         uuid.NewString(),
			Title:      sec.Title,
			StartIndex: sec.StartIndex,
			EndIndex:   sec.EndIndex,
			Status:     domain.StatusPending,
		}
	}
	s.Sections = out
	s.ProcessedSections = processed
}

// mergeInput concatenates the completed section summaries, in document
// order, into the input for the final merge pass.
func mergeInput(sections []domain.SectionSummary) string {
	var sb strings.Builder
	for _, sec := range sections {
		if sec.Status != domain.StatusCompleted {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(sec.Title)
		sb.WriteByte('\n')
		sb.WriteString(sec.Summary)
	}
	return sb.String()
}
