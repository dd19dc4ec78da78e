package domain

import "time"

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusCancelled  ProcessingStatus = "cancelled"
)

// DocumentSection is a contiguous slice of the original text.
// Sections produced by the sectioner cover [0, len(text)) exactly once,
// in ascending StartIndex order. Indexes are byte offsets.
type DocumentSection struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// SectionSummary tracks the summarization of one document section.
// Status never transitions backward.
type SectionSummary struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Content          string           `json:"content,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	BulletPoints     []string         `json:"bullet_points,omitempty"`
	StartIndex       int              `json:"start_index"`
	EndIndex         int              `json:"end_index"`
	Status           ProcessingStatus `json:"status"`
	ProcessingTimeMs int64            `json:"processing_time_ms,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Summary is the persisted domain entity. While IsPartial is true the job is
// still producing section results and ProcessedSections <= TotalSections;
// once the status is completed, IsPartial is false and ProcessedSections
// counts the sections that actually finished.
type Summary struct {
	ID             string       `json:"id"`
	OriginalText   string       `json:"original_text"`
	SummaryText    string       `json:"summary_text,omitempty"`
	BulletPoints   []string     `json:"bullet_points,omitempty"`
	Persona        StylePersona `json:"persona"`
	Language       string       `json:"language"`
	MaxLengthChars int          `json:"max_length_chars"`
	SourceFilename string       `json:"source_filename,omitempty"`
	StoragePath    string       `json:"storage_path,omitempty"`

	Confidence      float64  `json:"confidence"`
	BriefOverview   string   `json:"brief_overview,omitempty"`
	DetailedSummary string   `json:"detailed_summary,omitempty"`
	KeyInsights     []string `json:"key_insights,omitempty"`
	ActionItems     []string `json:"action_items,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`

	IsPartial         bool             `json:"is_partial"`
	ProcessedSections int              `json:"processed_sections"`
	TotalSections     int              `json:"total_sections"`
	Sections          []SectionSummary `json:"sections,omitempty"`
	ProcessingStatus  ProcessingStatus `json:"processing_status"`
	ErrorMessage      string           `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to the persistence port while the
// orchestrator keeps mutating its own instance.
func (s *Summary) Clone() *Summary {
	out := *s
	out.BulletPoints = cloneStrings(s.BulletPoints)
	out.KeyInsights = cloneStrings(s.KeyInsights)
	out.ActionItems = cloneStrings(s.ActionItems)
	out.Keywords = cloneStrings(s.Keywords)
	if s.Sections != nil {
		out.Sections = make([]SectionSummary, len(s.Sections))
		for i, sec := range s.Sections {
			sec.BulletPoints = cloneStrings(sec.BulletPoints)
			out.Sections[i] = sec
		}
	}
	return &out
}

// ApplyResponse copies a completed summarize response onto the entity.
func (s *Summary) ApplyResponse(resp SummarizeResponse) {
	s.SummaryText = resp.Summary
	s.BulletPoints = cloneStrings(resp.BulletPoints)
	s.Confidence = resp.Confidence
	s.BriefOverview = resp.BriefOverview
	s.DetailedSummary = resp.DetailedSummary
	s.KeyInsights = cloneStrings(resp.KeyInsights)
	s.ActionItems = cloneStrings(resp.ActionItems)
	s.Keywords = cloneStrings(resp.Keywords)
}

// MarkComplete moves the entity to its terminal successful state.
// ProcessedSections is left as counted; a job may complete with an isolated
// failed section.
func (s *Summary) MarkComplete(now time.Time) {
	s.ProcessingStatus = StatusCompleted
	s.IsPartial = false
	s.ErrorMessage = ""
	s.UpdatedAt = now
}

// MarkTerminal records a failed or cancelled end state.
func (s *Summary) MarkTerminal(status ProcessingStatus, reason string, now time.Time) {
	s.ProcessingStatus = status
	s.IsPartial = false
	s.ErrorMessage = reason
	s.UpdatedAt = now
}

// CompletedSectionIndexes reports which checkpointed sections are already
// done, keyed by start index. Used to skip work on resume.
func (s *Summary) CompletedSectionIndexes() map[int]SectionSummary {
	done := make(map[int]SectionSummary, len(s.Sections))
	for _, sec := range s.Sections {
		if sec.Status == StatusCompleted {
			done[sec.StartIndex] = sec
		}
	}
	return done
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
