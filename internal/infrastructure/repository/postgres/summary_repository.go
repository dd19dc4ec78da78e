package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vportnov/briefly/internal/core/domain"
)

// SummaryRepository persists summaries in Postgres. The variable-shape parts
// of the entity (bullet points, keywords, section checkpoints) live in JSONB
// columns; InsertOrReplace is a single upsert so a checkpoint is durable the
// moment the call returns.
type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SummaryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS summaries (
	id TEXT PRIMARY KEY,
	original_text TEXT NOT NULL,
	summary_text TEXT,
	bullet_points JSONB NOT NULL DEFAULT '[]'::jsonb,
	persona TEXT NOT NULL,
	language TEXT,
	max_length_chars INT NOT NULL DEFAULT 0,
	source_filename TEXT,
	storage_path TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	brief_overview TEXT,
	detailed_summary TEXT,
	key_insights JSONB NOT NULL DEFAULT '[]'::jsonb,
	action_items JSONB NOT NULL DEFAULT '[]'::jsonb,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_partial BOOLEAN NOT NULL DEFAULT FALSE,
	processed_sections INT NOT NULL DEFAULT 0,
	total_sections INT NOT NULL DEFAULT 0,
	sections JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summaries_status ON summaries(status);
CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const summaryColumns = `id, original_text, summary_text, bullet_points, persona, language, max_length_chars,
source_filename, storage_path, confidence, brief_overview, detailed_summary, key_insights, action_items,
keywords, is_partial, processed_sections, total_sections, sections, status, error_message, created_at, updated_at`

func (r *SummaryRepository) InsertOrReplace(ctx context.Context, s *domain.Summary) error {
	bullets, err := marshalJSONB(s.BulletPoints)
	if err != nil {
		return fmt.Errorf("marshal bullet points: %w", err)
	}
	insights, err := marshalJSONB(s.KeyInsights)
	if err != nil {
		return fmt.Errorf("marshal key insights: %w", err)
	}
	actions, err := marshalJSONB(s.ActionItems)
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}
	keywords, err := marshalJSONB(s.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	sections, err := marshalSections(s.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO summaries (`+summaryColumns+`
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (id) DO UPDATE SET
	summary_text = EXCLUDED.summary_text,
	bullet_points = EXCLUDED.bullet_points,
	persona = EXCLUDED.persona,
	language = EXCLUDED.language,
	max_length_chars = EXCLUDED.max_length_chars,
	source_filename = EXCLUDED.source_filename,
	storage_path = EXCLUDED.storage_path,
	confidence = EXCLUDED.confidence,
	brief_overview = EXCLUDED.brief_overview,
	detailed_summary = EXCLUDED.detailed_summary,
	key_insights = EXCLUDED.key_insights,
	action_items = EXCLUDED.action_items,
	keywords = EXCLUDED.keywords,
	is_partial = EXCLUDED.is_partial,
	processed_sections = EXCLUDED.processed_sections,
	total_sections = EXCLUDED.total_sections,
	sections = EXCLUDED.sections,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		s.ID, s.OriginalText, s.SummaryText, bullets, string(s.Persona), s.Language, s.MaxLengthChars,
		s.SourceFilename, s.StoragePath, s.Confidence, s.BriefOverview, s.DetailedSummary, insights, actions,
		keywords, s.IsPartial, s.ProcessedSections, s.TotalSections, sections, string(s.ProcessingStatus),
		s.ErrorMessage, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (r *SummaryRepository) GetByID(ctx context.Context, id string) (*domain.Summary, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+summaryColumns+`
FROM summaries
WHERE id = $1
`, id)

	s, err := scanSummary(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSummaryNotFound, "get summary", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return s, nil
}

func (r *SummaryRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete summary rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSummaryNotFound, "delete summary", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *SummaryRepository) List(ctx context.Context) ([]domain.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+summaryColumns+`
FROM summaries
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		s, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

func scanSummary(scan func(...any) error) (*domain.Summary, error) {
	var (
		s        domain.Summary
		bullets  []byte
		insights []byte
		actions  []byte
		keywords []byte
		sections []byte
		persona  string
		status   string
	)
	err := scan(
		&s.ID, &s.OriginalText, &s.SummaryText, &bullets, &persona, &s.Language, &s.MaxLengthChars,
		&s.SourceFilename, &s.StoragePath, &s.Confidence, &s.BriefOverview, &s.DetailedSummary, &insights, &actions,
		&keywords, &s.IsPartial, &s.ProcessedSections, &s.TotalSections, &sections, &status,
		&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan summary: %w", err)
	}

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{bullets, &s.BulletPoints},
		{insights, &s.KeyInsights},
		{actions, &s.ActionItems},
		{keywords, &s.Keywords},
		{sections, &s.Sections},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal summary jsonb: %w", err)
		}
	}
	s.Persona, _ = domain.ParsePersona(persona)
	s.ProcessingStatus = domain.ProcessingStatus(status)
	return &s, nil
}

func marshalJSONB(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func marshalSections(sections []domain.SectionSummary) ([]byte, error) {
	if sections == nil {
		sections = []domain.SectionSummary{}
	}
	return json.Marshal(sections)
}
