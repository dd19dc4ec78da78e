package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/infrastructure/sectioning"
)

type memoryRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Summary
	saves   int
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*domain.Summary)}
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}
	return s.Clone(), nil
}

func (r *memoryRepo) InsertOrReplace(_ context.Context, s *domain.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.items[s.ID] = s.Clone()
	return nil
}

func (r *memoryRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context) ([]domain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Summary, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *s.Clone())
	}
	return out, nil
}

func (r *memoryRepo) stored(t *testing.T, id string) *domain.Summary {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		t.Fatalf("summary %s not persisted", id)
	}
	return s.Clone()
}

type stubSummarizer struct {
	mu    sync.Mutex
	calls []domain.SummarizeRequest
	fn    func(domain.SummarizeRequest) (domain.SummarizeResponse, error)
}

func (s *stubSummarizer) Summarize(_ context.Context, req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.fn(req)
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubSummarizer) lastCall(t *testing.T) domain.SummarizeRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatal("summarizer was never called")
	}
	return s.calls[len(s.calls)-1]
}

type noopNotifier struct{}

func (noopNotifier) SetProgress(string, float64, int, int, bool) {}
func (noopNotifier) SectionFinished(string, string)              {}
func (noopNotifier) JobCompleted(string)                         {}
func (noopNotifier) JobFailed(string, error)                     {}

func okResponse(req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
	return domain.SummarizeResponse{
		Summary:      "sect-summary",
		BulletPoints: []string{"point one", "point two"},
		Confidence:   0.8,
	}, nil
}

func newTestUC(repo *memoryRepo, sum *stubSummarizer, threshold int) *ProcessSummaryUseCase {
	uc := NewProcessSummaryUseCase(
		repo,
		sum,
		sectioning.NewSectioner(threshold, threshold*2/3),
		NewJobRegistry(),
		NewEventBroadcaster(),
		noopNotifier{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		3,
	)
	uc.pausePoll = 2 * time.Millisecond
	return uc
}

func seedJob(repo *memoryRepo, text string) *domain.Summary {
	s := &domain.Summary{
		ID:               "job-1",
		OriginalText:     text,
		Persona:          domain.PersonaGeneral,
		ProcessingStatus: domain.StatusPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	repo.items[s.ID] = s.Clone()
	return s
}

func longText(chars int) string {
	var sb strings.Builder
	for sb.Len() < chars {
		sb.WriteString("A reasonably ordinary sentence that fills the test document. It says nothing much! Truly.\n\n")
	}
	return sb.String()
}

func TestProcessSingleDocumentCompletes(t *testing.T) {
	repo := newMemoryRepo()
	seedJob(repo, "a short note that fits well under the sectioning threshold")
	sum := &stubSummarizer{fn: okResponse}
	uc := newTestUC(repo, sum, 30000)

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}

	if got := sum.callCount(); got != 1 {
		t.Fatalf("expected one provider call, got %d", got)
	}
	stored := repo.stored(t, "job-1")
	if stored.ProcessingStatus != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.ProcessingStatus)
	}
	if stored.IsPartial || stored.SummaryText != "sect-summary" {
		t.Fatalf("completed summary not applied: %+v", stored)
	}
}

func TestProcessSectionedDocumentCompletes(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	seedJob(repo, text)
	sum := &stubSummarizer{fn: okResponse}
	uc := newTestUC(repo, sum, 30000)

	wantSections := len(uc.sectioner.Section(text))
	if wantSections < 2 {
		t.Fatalf("test text should split into at least two sections, got %d", wantSections)
	}

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}

	// one call per section plus the final merge pass
	if got := sum.callCount(); got != wantSections+1 {
		t.Fatalf("expected %d provider calls, got %d", wantSections+1, got)
	}
	merge := sum.lastCall(t)
	if got := strings.Count(merge.Text, "sect-summary"); got != wantSections {
		t.Fatalf("merge input should carry all %d section summaries, found %d", wantSections, got)
	}

	stored := repo.stored(t, "job-1")
	if stored.ProcessingStatus != domain.StatusCompleted || stored.IsPartial {
		t.Fatalf("expected non-partial completed summary, got %+v", stored)
	}
	if stored.TotalSections != wantSections || stored.ProcessedSections != wantSections {
		t.Fatalf("section accounting off: %d/%d, want %d/%d",
			stored.ProcessedSections, stored.TotalSections, wantSections, wantSections)
	}
	for i, sec := range stored.Sections {
		if sec.Status != domain.StatusCompleted {
			t.Fatalf("section %d status = %s, want completed", i, sec.Status)
		}
		if i > 0 && sec.StartIndex <= stored.Sections[i-1].StartIndex {
			t.Fatalf("sections are not in document order at %d", i)
		}
	}
}

func TestSectionFailureIsIsolated(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	seedJob(repo, text)

	uc := newTestUC(repo, &stubSummarizer{fn: okResponse}, 30000)
	sections := uc.sectioner.Section(text)
	failing := sections[1].Content

	sum := &stubSummarizer{fn: func(req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		if req.Text == failing {
			return domain.SummarizeResponse{}, domain.Classify(domain.ErrContentFiltered)
		}
		return okResponse(req)
	}}
	uc = newTestUC(repo, sum, 30000)

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("one failed section must not fail the job: %v", err)
	}

	stored := repo.stored(t, "job-1")
	if stored.ProcessingStatus != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.ProcessingStatus)
	}
	if stored.ProcessedSections != len(sections)-1 {
		t.Fatalf("processed = %d, want %d", stored.ProcessedSections, len(sections)-1)
	}
	failed := stored.Sections[1]
	if failed.Status != domain.StatusFailed || failed.Error == "" {
		t.Fatalf("failed section not recorded: %+v", failed)
	}
	// the merge pass must only see the sections that completed
	merge := sum.lastCall(t)
	if got := strings.Count(merge.Text, "sect-summary"); got != len(sections)-1 {
		t.Fatalf("merge input carries %d summaries, want %d", got, len(sections)-1)
	}
}

func TestCancellationIsTerminalAndClean(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	seedJob(repo, text)

	uc := newTestUC(repo, nil, 30000)
	sum := &stubSummarizer{fn: func(req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		// cancel mid-flight: observed at the next section boundary
		uc.registry.Cancel("job-1")
		return okResponse(req)
	}}
	uc.summarizer = sum

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("cancellation is a clean terminal state, got error: %v", err)
	}

	stored := repo.stored(t, "job-1")
	if stored.ProcessingStatus != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.ProcessingStatus)
	}
	if uc.registry.IsCancelled("job-1") {
		t.Fatal("registry flags must be cleared on terminal state")
	}
	// no merge pass after cancellation
	if sum.callCount() > len(uc.sectioner.Section(text)) {
		t.Fatalf("provider called %d times after cancel", sum.callCount())
	}

	// a cancelled job stays cancelled on redelivery
	before := sum.callCount()
	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("redelivery of cancelled job: %v", err)
	}
	if sum.callCount() != before {
		t.Fatal("redelivered cancelled job must not reach the provider")
	}
}

func TestResumeSkipsCheckpointedSections(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	job := seedJob(repo, text)

	uc := newTestUC(repo, &stubSummarizer{fn: okResponse}, 30000)
	sections := uc.sectioner.Section(text)
	if len(sections) < 2 {
		t.Fatalf("need at least two sections, got %d", len(sections))
	}

	// simulate a prior interrupted run that checkpointed the first section
	job.Sections = []domain.SectionSummary{{
		ID:         "sec-0",
		Title:      sections[0].Title,
		Summary:    "checkpointed summary",
		StartIndex: sections[0].StartIndex,
		EndIndex:   sections[0].EndIndex,
		Status:     domain.StatusCompleted,
	}}
	job.TotalSections = len(sections)
	job.ProcessedSections = 1
	job.IsPartial = true
	job.ProcessingStatus = domain.StatusProcessing
	repo.items[job.ID] = job.Clone()

	sum := &stubSummarizer{fn: func(req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		if req.Text == sections[0].Content {
			t.Error("checkpointed section was summarized again")
		}
		return okResponse(req)
	}}
	uc = newTestUC(repo, sum, 30000)

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}

	// remaining sections plus merge, nothing for the finished one
	if got := sum.callCount(); got != len(sections) {
		t.Fatalf("expected %d provider calls on resume, got %d", len(sections), got)
	}
	merge := sum.lastCall(t)
	if !strings.Contains(merge.Text, "checkpointed summary") {
		t.Fatal("merge input must include the checkpointed section summary")
	}
	stored := repo.stored(t, "job-1")
	if stored.Sections[0].Summary != "checkpointed summary" {
		t.Fatal("checkpointed section result was overwritten")
	}
}

func TestPauseHoldsAtSectionBoundary(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	seedJob(repo, text)
	sum := &stubSummarizer{fn: okResponse}
	uc := newTestUC(repo, sum, 30000)

	uc.registry.Pause("job-1")

	done := make(chan error, 1)
	go func() { done <- uc.ProcessByID(context.Background(), "job-1") }()

	time.Sleep(25 * time.Millisecond)
	if got := sum.callCount(); got != 0 {
		t.Fatalf("paused job reached the provider %d times", got)
	}

	uc.registry.Resume("job-1")
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ProcessByID after resume: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish after resume")
	}
	if repo.stored(t, "job-1").ProcessingStatus != domain.StatusCompleted {
		t.Fatal("resumed job should complete")
	}
}

func TestRetryableFailureSurfacesAsTemporary(t *testing.T) {
	repo := newMemoryRepo()
	seedJob(repo, "a short note that fits well under the sectioning threshold")
	sum := &stubSummarizer{fn: func(domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		return domain.SummarizeResponse{}, domain.Classify(domain.ErrModelOverloaded)
	}}
	uc := newTestUC(repo, sum, 30000)

	err := uc.ProcessByID(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("retryable failure should be wrapped as temporary, got %v", err)
	}
	stored := repo.stored(t, "job-1")
	if stored.ProcessingStatus != domain.StatusFailed || stored.ErrorMessage == "" {
		t.Fatalf("failed terminal state not recorded: %+v", stored)
	}
}

func TestNonRetryableFailureIsPermanent(t *testing.T) {
	repo := newMemoryRepo()
	seedJob(repo, "a short note that fits well under the sectioning threshold")
	sum := &stubSummarizer{fn: func(domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		return domain.SummarizeResponse{}, domain.Classify(domain.ErrContentFiltered)
	}}
	uc := newTestUC(repo, sum, 30000)

	err := uc.ProcessByID(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must not be marked temporary: %v", err)
	}
	if repo.stored(t, "job-1").ProcessingStatus != domain.StatusFailed {
		t.Fatal("expected failed terminal state")
	}
}

func TestRedeliveredCompletedJobIsNoop(t *testing.T) {
	repo := newMemoryRepo()
	job := seedJob(repo, "a short note that fits well under the sectioning threshold")
	job.ProcessingStatus = domain.StatusCompleted
	repo.items[job.ID] = job.Clone()

	sum := &stubSummarizer{fn: okResponse}
	uc := newTestUC(repo, sum, 30000)

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}
	if sum.callCount() != 0 {
		t.Fatal("completed job must not be reprocessed")
	}
}

func TestCheckpointFailureAbortsJob(t *testing.T) {
	text := longText(45000)
	repo := newMemoryRepo()
	seedJob(repo, text)

	sum := &stubSummarizer{fn: okResponse}
	uc := newTestUC(repo, sum, 30000)

	// fail persistence only once the workers start checkpointing
	var armed sync.Once
	uc.summarizer = &stubSummarizer{fn: func(req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
		armed.Do(func() {
			repo.mu.Lock()
			repo.saveErr = fmt.Errorf("disk gone")
			repo.mu.Unlock()
		})
		return okResponse(req)
	}}

	err := uc.ProcessByID(context.Background(), "job-1")
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("expected checkpoint failure to surface, got %v", err)
	}
}
