package gemini

import (
	"fmt"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
)

const defaultMaxLengthChars = 2000

// BuildPrompt maps a summarize request to a fully specified prompt. Pure and
// deterministic: identical requests always yield identical prompts, which the
// golden-output tests rely on.
func BuildPrompt(req domain.SummarizeRequest) string {
	maxLen := req.MaxLengthChars
	if maxLen <= 0 {
		maxLen = defaultMaxLengthChars
	}
	summaryLimit := int(0.30 * float64(maxLen))
	bulletLimit := int(0.15 * float64(maxLen))

	var sb strings.Builder
	sb.WriteString(styleDirective(req.Persona))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Keep the summary under %d characters. Keep each key point under %d characters.\n\n", summaryLimit, bulletLimit)
	sb.WriteString(`Respond in plain text using exactly this layout:
SUMMARY:
<the summary>
KEY POINTS:
` + "•" + ` <first key point>
` + "•" + ` <second key point>
` + "•" + ` <third key point>`)
	sb.WriteString("\n\n")
	sb.WriteString(languageDirective(req.Language))
	sb.WriteString("\n\nTEXT TO SUMMARIZE:\n---\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n---")
	return sb.String()
}

func styleDirective(persona domain.StylePersona) string {
	switch persona {
	case domain.PersonaEducational:
		return "You are a patient teacher. Summarize the text so a student meeting the topic for the first time can follow it: explain key concepts plainly and prefer clarity over brevity."
	case domain.PersonaActionable:
		return "You are a pragmatic assistant. Summarize the text with a focus on decisions and next steps: surface tasks, owners and deadlines wherever the text implies them."
	case domain.PersonaPrecise:
		return "You are a meticulous analyst. Summarize the text tersely and factually: no interpretation, no filler, keep numbers and names exact."
	default:
		return "You are a helpful assistant. Summarize the text clearly and neutrally for a general reader."
	}
}

func languageDirective(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return "Detect the language of the text and respond in that same language."
	}
	return fmt.Sprintf("Respond in the language with code %q.", lang)
}
