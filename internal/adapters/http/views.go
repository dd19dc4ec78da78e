package httpadapter

import (
	"time"

	"github.com/vportnov/briefly/internal/core/domain"
)

// summaryView is the wire shape of a summary. The original text is not
// echoed back; sections appear without their source content.
type summaryView struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	Persona        string   `json:"persona"`
	Language       string   `json:"language,omitempty"`
	SourceFilename string   `json:"source_filename,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	BulletPoints   []string `json:"bullet_points,omitempty"`
	Confidence     float64  `json:"confidence"`

	BriefOverview   string   `json:"brief_overview,omitempty"`
	DetailedSummary string   `json:"detailed_summary,omitempty"`
	KeyInsights     []string `json:"key_insights,omitempty"`
	ActionItems     []string `json:"action_items,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`

	IsPartial         bool          `json:"is_partial"`
	ProcessedSections int           `json:"processed_sections"`
	TotalSections     int           `json:"total_sections"`
	Sections          []sectionView `json:"sections,omitempty"`
	Error             string        `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sectionView struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	BulletPoints []string `json:"bullet_points,omitempty"`
	StartIndex   int      `json:"start_index"`
	EndIndex     int      `json:"end_index"`
	Status       string   `json:"status"`
	Error        string   `json:"error,omitempty"`
}

func viewOf(s *domain.Summary) summaryView {
	view := summaryView{
		ID:                s.ID,
		Status:            string(s.ProcessingStatus),
		Persona:           string(s.Persona),
		Language:          s.Language,
		SourceFilename:    s.SourceFilename,
		Summary:           s.SummaryText,
		BulletPoints:      s.BulletPoints,
		Confidence:        s.Confidence,
		BriefOverview:     s.BriefOverview,
		DetailedSummary:   s.DetailedSummary,
		KeyInsights:       s.KeyInsights,
		ActionItems:       s.ActionItems,
		Keywords:          s.Keywords,
		IsPartial:         s.IsPartial,
		ProcessedSections: s.ProcessedSections,
		TotalSections:     s.TotalSections,
		Error:             s.ErrorMessage,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for _, sec := range s.Sections {
		view.Sections = append(view.Sections, sectionView{
			ID:           sec.ID,
			Title:        sec.Title,
			Summary:      sec.Summary,
			BulletPoints: sec.BulletPoints,
			StartIndex:   sec.StartIndex,
			EndIndex:     sec.EndIndex,
			Status:       string(sec.Status),
			Error:        sec.Error,
		})
	}
	return view
}
