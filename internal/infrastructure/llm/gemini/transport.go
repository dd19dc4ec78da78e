package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
)

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
		SafetyRatings []struct {
			Category    string `json:"category"`
			Probability string `json:"probability"`
		} `json:"safetyRatings"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// HTTPStatusError is a provider response with a non-success status code. It
// satisfies the classifier's status-carrier interface.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "gemini status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("gemini %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("gemini %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *Client) generateContent(ctx context.Context, prompt string, genCfg generationConfig) (string, error) {
	payload := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: genCfg,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 300 {
		return "", providerError(resp.StatusCode, resp.Status, raw)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	if parsed.PromptFeedback.BlockReason != "" {
		return "", domain.WrapError(domain.ErrContentFiltered, "gemini generate",
			fmt.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason))
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: empty candidate list")
	}

	candidate := parsed.Candidates[0]
	if strings.EqualFold(candidate.FinishReason, "SAFETY") {
		return "", domain.WrapError(domain.ErrContentFiltered, "gemini generate",
			fmt.Errorf("finish reason SAFETY (%d ratings)", len(candidate.SafetyRatings)))
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// providerError maps error payloads onto domain sentinels where the status
// code alone is ambiguous (quota vs transient 429, overloaded 503, bad key).
func providerError(statusCode int, status string, body []byte) error {
	statusErr := &HTTPStatusError{
		Operation:  "generate",
		StatusCode: statusCode,
		Status:     status,
		Body:       string(body),
	}

	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)
	message := strings.ToLower(apiErr.Error.Message)

	switch statusCode {
	case http.StatusTooManyRequests:
		if strings.Contains(message, "quota") ||
			(strings.Contains(apiErr.Error.Status, "RESOURCE_EXHAUSTED") && strings.Contains(message, "per day")) {
			return domain.WrapError(domain.ErrQuotaExceeded, "gemini generate", statusErr)
		}
	case http.StatusServiceUnavailable:
		if strings.Contains(message, "overloaded") {
			return domain.WrapError(domain.ErrModelOverloaded, "gemini generate", statusErr)
		}
		if strings.Contains(message, "loading") {
			return domain.WrapError(domain.ErrModelLoading, "gemini generate", statusErr)
		}
	case http.StatusBadRequest:
		if strings.Contains(message, "api key not valid") {
			return domain.WrapError(domain.ErrAPIKeyInvalid, "gemini generate", statusErr)
		}
	}
	return statusErr
}
