package domain

import "strings"

// StylePersona selects the summarization tone. The set is closed: external
// string representations are mapped at the boundary via ParsePersona and
// internal logic switches exhaustively over these values.
type StylePersona string

const (
	PersonaGeneral     StylePersona = "general"
	PersonaEducational StylePersona = "educational"
	PersonaActionable  StylePersona = "actionable"
	PersonaPrecise     StylePersona = "precise"
)

// ParsePersona maps an external string to a persona. Unknown or empty values
// fall back to PersonaGeneral; the second result reports whether the input
// was recognized.
func ParsePersona(raw string) (StylePersona, bool) {
	switch StylePersona(strings.ToLower(strings.TrimSpace(raw))) {
	case PersonaGeneral, "":
		return PersonaGeneral, true
	case PersonaEducational:
		return PersonaEducational, true
	case PersonaActionable:
		return PersonaActionable, true
	case PersonaPrecise:
		return PersonaPrecise, true
	default:
		return PersonaGeneral, false
	}
}

// SummarizeRequest is one immutable unit of work for the provider client.
type SummarizeRequest struct {
	Text           string
	Persona        StylePersona
	MaxLengthChars int
	Language       string
}

// SummarizeResponse is the parsed result of one completed provider
// round-trip.
type SummarizeResponse struct {
	Summary          string   `json:"summary"`
	BulletPoints     []string `json:"bullet_points"`
	Confidence       float64  `json:"confidence"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	BriefOverview    string   `json:"brief_overview,omitempty"`
	DetailedSummary  string   `json:"detailed_summary,omitempty"`
	KeyInsights      []string `json:"key_insights,omitempty"`
	ActionItems      []string `json:"action_items,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
}
