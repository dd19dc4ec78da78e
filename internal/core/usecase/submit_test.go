package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/vportnov/briefly/internal/core/domain"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(context.Context, string, []byte) (string, error) {
	return e.text, e.err
}

type stubQueue struct {
	mu        sync.Mutex
	published []string
	signals   map[string][]domain.JobSignal
}

func newStubQueue() *stubQueue {
	return &stubQueue{signals: make(map[string][]domain.JobSignal)}
}

func (q *stubQueue) PublishSummarizeRequested(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, id)
	return nil
}

func (q *stubQueue) SubscribeSummarizeRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

func (q *stubQueue) PublishJobSignal(_ context.Context, jobID string, signal domain.JobSignal) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.signals[jobID] = append(q.signals[jobID], signal)
	return nil
}

func (q *stubQueue) SubscribeJobSignals(context.Context, func(string, domain.JobSignal)) error {
	return nil
}

const validText = "This text is comfortably long enough to pass the minimum submission length check."

func TestSubmitTextCreatesPendingJob(t *testing.T) {
	repo := newMemoryRepo()
	queue := newStubQueue()
	uc := NewSubmitSummaryUseCase(repo, newMemStorage(), &stubExtractor{}, queue, 2000)

	summary, err := uc.SubmitText(context.Background(), domain.SummarizeRequest{
		Text:    validText,
		Persona: "EDUCATIONAL",
	})
	if err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if summary.ID == "" {
		t.Fatal("submitted summary must get an id")
	}
	if summary.ProcessingStatus != domain.StatusPending {
		t.Fatalf("status = %s, want pending", summary.ProcessingStatus)
	}
	if summary.Persona != domain.PersonaEducational {
		t.Fatalf("persona not normalized: %q", summary.Persona)
	}

	stored := repo.stored(t, summary.ID)
	if stored.OriginalText != validText {
		t.Fatal("placeholder not persisted before queueing")
	}
	if len(queue.published) != 1 || queue.published[0] != summary.ID {
		t.Fatalf("job not queued: %v", queue.published)
	}
}

func TestSubmitTextTooShortIsRejected(t *testing.T) {
	repo := newMemoryRepo()
	queue := newStubQueue()
	uc := NewSubmitSummaryUseCase(repo, newMemStorage(), &stubExtractor{}, queue, 2000)

	_, err := uc.SubmitText(context.Background(), domain.SummarizeRequest{Text: "too short"})
	if !domain.IsKind(err, domain.ErrTextTooShort) {
		t.Fatalf("expected text-too-short kind, got %v", err)
	}
	if len(repo.items) != 0 || len(queue.published) != 0 {
		t.Fatal("rejected submission must not persist or queue anything")
	}
}

func TestSubmitDocumentArchivesOriginal(t *testing.T) {
	repo := newMemoryRepo()
	storage := newMemStorage()
	queue := newStubQueue()
	uc := NewSubmitSummaryUseCase(repo, storage, &stubExtractor{text: validText}, queue, 2000)

	raw := []byte("%PDF-1.4 fake body")
	summary, err := uc.SubmitDocument(context.Background(),
		"Quarterly Report (final).pdf", "application/pdf", raw,
		domain.SummarizeRequest{})
	if err != nil {
		t.Fatalf("SubmitDocument: %v", err)
	}

	if summary.SourceFilename != "Quarterly Report (final).pdf" {
		t.Fatalf("source filename lost: %q", summary.SourceFilename)
	}
	if summary.StoragePath == "" || !strings.HasPrefix(summary.StoragePath, summary.ID+"_") {
		t.Fatalf("storage key should be namespaced by job id, got %q", summary.StoragePath)
	}
	got, ok := storage.objects[summary.StoragePath]
	if !ok || !bytes.Equal(got, raw) {
		t.Fatal("original document was not archived intact")
	}
	if summary.OriginalText != validText {
		t.Fatal("extracted text not carried onto the job")
	}
	if len(queue.published) != 1 {
		t.Fatal("document job not queued")
	}
}

func TestSubmitDocumentExtractionFailure(t *testing.T) {
	uc := NewSubmitSummaryUseCase(newMemoryRepo(), newMemStorage(),
		&stubExtractor{err: domain.WrapError(domain.ErrOCRFailed, "extract pdf", io.ErrUnexpectedEOF)},
		newStubQueue(), 2000)

	_, err := uc.SubmitDocument(context.Background(), "broken.pdf", "application/pdf",
		[]byte("junk"), domain.SummarizeRequest{})
	if !domain.IsKind(err, domain.ErrOCRFailed) {
		t.Fatalf("expected extraction failure kind, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":             "report.pdf",
		"my report.pdf":          "my_report.pdf",
		"../../etc/passwd":       "passwd",
		"весь_отчёт.pdf":         strings.Repeat("_", 10) + ".pdf",
		"":                       "document.bin",
		"notes (v2) [final].txt": "notes__v2___final_.txt",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
