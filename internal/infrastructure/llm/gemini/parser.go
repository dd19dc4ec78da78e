package gemini

import (
	"encoding/json"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
)

// Model output is not guaranteed to follow the requested format, so parsing
// degrades instead of failing: a strict structured attempt first, then
// marker-based extraction, then hard fallbacks. ParseResponse never returns
// an error.
func ParseResponse(raw string, processingTimeMs int64) domain.SummarizeResponse {
	if resp, ok := parseStructured(raw, processingTimeMs); ok {
		return resp
	}
	return parseHeuristic(raw, processingTimeMs)
}

type structuredPayload struct {
	Summary     string          `json:"summary"`
	Bullets     []string        `json:"bullets"`
	Keywords    []string        `json:"keywords"`
	ReadingTime json.RawMessage `json:"readingTime"`
	Complexity  json.RawMessage `json:"complexity"`
}

func parseStructured(raw string, processingTimeMs int64) (domain.SummarizeResponse, bool) {
	var payload structuredPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.SummarizeResponse{}, false
	}
	summary := strings.TrimSpace(payload.Summary)
	if summary == "" || len(payload.Bullets) == 0 {
		return domain.SummarizeResponse{}, false
	}

	bullets := payload.Bullets
	if len(bullets) > 5 {
		bullets = bullets[:5]
	}

	return domain.SummarizeResponse{
		Summary:          summary,
		BulletPoints:     bullets,
		Keywords:         payload.Keywords,
		Confidence:       structuredConfidence(summary, bullets, payload),
		ProcessingTimeMs: processingTimeMs,
	}, true
}

// Preserved scoring heuristic: the thresholds are ad hoc but kept exactly for
// output compatibility.
func structuredConfidence(summary string, bullets []string, payload structuredPayload) float64 {
	score := 0.5
	if len(summary) > 50 {
		score += 0.15
	}
	if sentenceCount(summary) > 1 {
		score += 0.05
	}
	if len(bullets) >= 3 {
		score += 0.15
	}
	if allLongerThan(bullets, 20) {
		score += 0.10
	}
	if len(payload.Keywords) > 0 {
		score += 0.05
	}
	if len(payload.ReadingTime) > 0 {
		score += 0.025
	}
	if len(payload.Complexity) > 0 {
		score += 0.025
	}
	return clamp(score, 0.5, 0.95)
}

const (
	markerBrief       = "BRIEF:"
	markerSummary     = "SUMMARY:"
	markerDetailed    = "DETAILED:"
	markerKeyPoints   = "KEY POINTS:"
	markerKeyInsights = "KEY INSIGHTS:"
	markerActionItems = "ACTION ITEMS:"
	markerKeywords    = "KEYWORDS:"
)

var sectionMarkers = []string{
	markerBrief,
	markerSummary,
	markerDetailed,
	markerKeyPoints,
	markerKeyInsights,
	markerActionItems,
	markerKeywords,
}

var placeholderKeyPoints = []string{
	"Review the generated summary above",
	"The response did not include separate key points",
	"Submit the text again for a more structured result",
}

const unableToSummarize = "Unable to generate summary"

func parseHeuristic(raw string, processingTimeMs int64) domain.SummarizeResponse {
	lines := nonBlankLines(raw)
	markers := locateMarkers(lines)

	brief := joinedSection(lines, markers, markerBrief)
	summary := joinedSection(lines, markers, markerSummary)
	detailed := joinedSection(lines, markers, markerDetailed)
	if summary == "" {
		summary = firstLongPlainLine(lines)
	}
	if summary == "" {
		summary = unableToSummarize
	}

	keyPoints := bulletLines(sectionRange(lines, markers, markerKeyPoints))
	insights := bulletLines(sectionRange(lines, markers, markerKeyInsights))
	actions := bulletLines(sectionRange(lines, markers, markerActionItems))
	keywords := keywordList(lines, markers)

	score := 0.5
	if brief != "" {
		score += 0.15
	}
	if len(summary) > 50 {
		score += 0.15
	}
	if detailed != "" {
		score += 0.15
	}
	if len(keyPoints) >= 3 {
		score += 0.05
	}

	if len(keyPoints) == 0 {
		keyPoints = append([]string(nil), placeholderKeyPoints...)
	} else if len(keyPoints) > 7 {
		keyPoints = keyPoints[:7]
	}

	return domain.SummarizeResponse{
		Summary:          summary,
		BulletPoints:     keyPoints,
		BriefOverview:    brief,
		DetailedSummary:  detailed,
		KeyInsights:      insights,
		ActionItems:      actions,
		Keywords:         keywords,
		Confidence:       clamp(score, 0, 1),
		ProcessingTimeMs: processingTimeMs,
	}
}

func nonBlankLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// locateMarkers records the first line index of each known section marker.
func locateMarkers(lines []string) map[string]int {
	found := make(map[string]int, len(sectionMarkers))
	for i, line := range lines {
		upper := strings.ToUpper(line)
		for _, marker := range sectionMarkers {
			if _, ok := found[marker]; ok {
				continue
			}
			if strings.HasPrefix(upper, marker) {
				found[marker] = i
			}
		}
	}
	return found
}

// sectionRange returns a marker's line range: the remainder of the marker
// line itself plus every line up to the next present marker.
func sectionRange(lines []string, markers map[string]int, marker string) []string {
	start, ok := markers[marker]
	if !ok {
		return nil
	}
	end := len(lines)
	for _, other := range sectionMarkers {
		idx, present := markers[other]
		if present && idx > start && idx < end {
			end = idx
		}
	}

	var out []string
	if rest := strings.TrimSpace(lines[start][len(marker):]); rest != "" {
		out = append(out, rest)
	}
	out = append(out, lines[start+1:end]...)
	return out
}

func joinedSection(lines []string, markers map[string]int, marker string) string {
	return strings.TrimSpace(strings.Join(sectionRange(lines, markers, marker), " "))
}

func bulletLines(section []string) []string {
	var out []string
	for _, line := range section {
		if !isBulletLine(line) {
			continue
		}
		text := strings.TrimSpace(strings.TrimLeft(line, "•-* \t"))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
}

// keywordList reads the single line after KEYWORDS: as a comma-separated
// list.
func keywordList(lines []string, markers map[string]int) []string {
	idx, ok := markers[markerKeywords]
	if !ok {
		return nil
	}
	var source string
	if rest := strings.TrimSpace(lines[idx][len(markerKeywords):]); rest != "" {
		source = rest
	} else if idx+1 < len(lines) {
		source = lines[idx+1]
	}
	if source == "" {
		return nil
	}

	var out []string
	for _, kw := range strings.Split(source, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func firstLongPlainLine(lines []string) string {
	for _, line := range lines {
		if len(line) > 50 && !isBulletLine(line) && !isMarkerLine(line) {
			return line
		}
	}
	return ""
}

func isMarkerLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range sectionMarkers {
		if strings.HasPrefix(upper, marker) {
			return true
		}
	}
	return false
}

func sentenceCount(text string) int {
	return strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
}

func allLongerThan(items []string, length int) bool {
	for _, item := range items {
		if len(item) <= length {
			return false
		}
	}
	return len(items) > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// extractJSONObject trims any prose or code fences around a JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
