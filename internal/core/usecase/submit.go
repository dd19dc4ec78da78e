package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/ports"
)

// minTextChars guards against inputs too short to produce a meaningful
// summary.
const minTextChars = 50

type SubmitSummaryUseCase struct {
	repo             ports.SummaryRepository
	storage          ports.ObjectStorage
	extractor        ports.TextExtractor
	queue            ports.MessageQueue
	defaultMaxLength int
}

func NewSubmitSummaryUseCase(
	repo ports.SummaryRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	queue ports.MessageQueue,
	defaultMaxLength int,
) *SubmitSummaryUseCase {
	if defaultMaxLength <= 0 {
		defaultMaxLength = 2000
	}
	return &SubmitSummaryUseCase{
		repo:             repo,
		storage:          storage,
		extractor:        extractor,
		queue:            queue,
		defaultMaxLength: defaultMaxLength,
	}
}

// SubmitText accepts raw text, persists a pending placeholder and queues the
// job for the worker.
func (uc *SubmitSummaryUseCase) SubmitText(ctx context.Context, req domain.SummarizeRequest) (*domain.Summary, error) {
	summary, err := uc.newPlaceholder(req)
	if err != nil {
		return nil, err
	}
	return summary, uc.persistAndQueue(ctx, summary)
}

// SubmitDocument extracts text from an uploaded file, archives the original
// and queues the job.
func (uc *SubmitSummaryUseCase) SubmitDocument(
	ctx context.Context,
	filename, mimeType string,
	data []byte,
	req domain.SummarizeRequest,
) (*domain.Summary, error) {
	text, err := uc.extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("extract document text: %w", err)
	}
	req.Text = text

	summary, err := uc.newPlaceholder(req)
	if err != nil {
		return nil, err
	}

	storageKey := fmt.Sprintf("%s_%s", summary.ID, sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("archive source document: %w", err)
	}
	summary.SourceFilename = filename
	summary.StoragePath = storageKey

	return summary, uc.persistAndQueue(ctx, summary)
}

func (uc *SubmitSummaryUseCase) newPlaceholder(req domain.SummarizeRequest) (*domain.Summary, error) {
	text := strings.TrimSpace(req.Text)
	if len(text) < minTextChars {
		return nil, domain.WrapError(domain.ErrTextTooShort, "submit summary",
			fmt.Errorf("got %d chars, need at least %d", len(text), minTextChars))
	}

	if req.MaxLengthChars <= 0 {
		req.MaxLengthChars = uc.defaultMaxLength
	}
	persona, _ := domain.ParsePersona(string(req.Persona))
	now := time.Now().UTC()
	return &domain.Summary{
		ID:               uuid.NewString(),
		OriginalText:     text,
		Persona:          persona,
		Language:         req.Language,
		MaxLengthChars:   req.MaxLengthChars,
		ProcessingStatus: domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (uc *SubmitSummaryUseCase) persistAndQueue(ctx context.Context, summary *domain.Summary) error {
	if err := uc.repo.InsertOrReplace(ctx, summary); err != nil {
		return fmt.Errorf("create summary placeholder: %w", err)
	}
	if err := uc.queue.PublishSummarizeRequested(ctx, summary.ID); err != nil {
		return fmt.Errorf("publish summarize job: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
