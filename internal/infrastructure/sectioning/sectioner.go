package sectioning

import (
	"fmt"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
)

const (
	// DefaultThreshold is the input size above which a document is split
	// into sections instead of being summarized in one call.
	DefaultThreshold = 30000
	// DefaultTargetSize is the size each section aims for. Actual cuts
	// land on the nearest natural boundary.
	DefaultTargetSize = 20000
)

// Sectioner splits oversized documents along natural boundaries. Section is
// pure: the same text always yields the same sections, and the produced
// ranges cover [0, len(text)) exactly once with no overlap.
type Sectioner struct {
	threshold  int
	targetSize int
}

func NewSectioner(threshold, targetSize int) *Sectioner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if targetSize > threshold {
		targetSize = threshold
	}
	return &Sectioner{
		threshold:  threshold,
		targetSize: targetSize,
	}
}

func (s *Sectioner) Threshold() int {
	return s.threshold
}

func (s *Sectioner) Section(text string) []domain.DocumentSection {
	if text == "" {
		return nil
	}

	out := make([]domain.DocumentSection, 0, len(text)/s.targetSize+1)
	start := 0
	for part := 1; start < len(text); part++ {
		end := s.cutPoint(text, start)
		content := text[start:end]
		out = append(out, domain.DocumentSection{
			Title:      sectionTitle(content, part),
			Content:    content,
			StartIndex: start,
			EndIndex:   end,
		})
		start = end
	}
	return out
}

// cutPoint finds where the section starting at start should end: at the
// target size, moved to the nearest paragraph break, then sentence break,
// then word break. Never inside a word.
func (s *Sectioner) cutPoint(text string, start int) int {
	target := start + s.targetSize
	if target >= len(text) {
		return len(text)
	}

	// Only look back as far as half a section, so sections cannot
	// degenerate into slivers.
	low := start + s.targetSize/2
	window := text[low:target]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return low + idx + 2
	}
	if idx, width := lastSentenceEnd(window); idx >= 0 {
		return low + idx + width
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx >= 0 {
		return low + idx + 1
	}

	// No boundary in the whole window: extend forward to the next
	// whitespace rather than cutting mid-word.
	if idx := strings.IndexAny(text[target:], " \t\n"); idx >= 0 {
		return target + idx + 1
	}
	return len(text)
}

var sentenceEnds = []string{". ", ".\n", "! ", "!\n", "? ", "?\n", "\n"}

// lastSentenceEnd returns the offset and width of the right-most sentence
// terminator in the window, or -1.
func lastSentenceEnd(window string) (int, int) {
	best, width := -1, 0
	for _, sep := range sentenceEnds {
		if idx := strings.LastIndex(window, sep); idx > best {
			best, width = idx, len(sep)
		}
	}
	return best, width
}

// sectionTitle derives a display title from the section's first line,
// falling back to a synthesized part name.
func sectionTitle(content string, part int) string {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" || len(firstLine) > 80 {
		return fmt.Sprintf("Part %d", part)
	}
	return firstLine
}
