package gemini

import (
	"strings"
	"testing"

	"github.com/vportnov/briefly/internal/core/domain"
)

func TestBuildPromptIsDeterministic(t *testing.T) {
	req := domain.SummarizeRequest{
		Text:           "Some input text.",
		Persona:        domain.PersonaPrecise,
		MaxLengthChars: 1000,
		Language:       "auto",
	}
	if BuildPrompt(req) != BuildPrompt(req) {
		t.Fatalf("prompt must be deterministic for identical requests")
	}
}

func TestBuildPromptComputesCharLimits(t *testing.T) {
	req := domain.SummarizeRequest{Text: "t", Persona: domain.PersonaGeneral, MaxLengthChars: 2000}
	prompt := BuildPrompt(req)
	if !strings.Contains(prompt, "under 600 characters") {
		t.Fatalf("expected summary limit 600 (30%% of 2000) in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "under 300 characters") {
		t.Fatalf("expected bullet limit 300 (15%% of 2000) in prompt:\n%s", prompt)
	}
}

func TestBuildPromptIncludesFormatMarkersAndText(t *testing.T) {
	req := domain.SummarizeRequest{Text: "the verbatim source body", Persona: domain.PersonaGeneral}
	prompt := BuildPrompt(req)
	for _, want := range []string{"SUMMARY:", "KEY POINTS:", "•", "---\nthe verbatim source body\n---"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptPersonaDirectives(t *testing.T) {
	personas := map[domain.StylePersona]string{
		domain.PersonaGeneral:     "general reader",
		domain.PersonaEducational: "teacher",
		domain.PersonaActionable:  "next steps",
		domain.PersonaPrecise:     "factually",
	}
	for persona, want := range personas {
		prompt := BuildPrompt(domain.SummarizeRequest{Text: "x", Persona: persona})
		if !strings.Contains(prompt, want) {
			t.Fatalf("persona %s: expected directive containing %q", persona, want)
		}
	}
}

func TestBuildPromptLanguageDirective(t *testing.T) {
	auto := BuildPrompt(domain.SummarizeRequest{Text: "x", Language: "auto"})
	if !strings.Contains(auto, "same language") {
		t.Fatalf("expected detect-and-mirror directive for auto")
	}
	explicit := BuildPrompt(domain.SummarizeRequest{Text: "x", Language: "de"})
	if !strings.Contains(explicit, `"de"`) {
		t.Fatalf("expected explicit language code in directive")
	}
}
