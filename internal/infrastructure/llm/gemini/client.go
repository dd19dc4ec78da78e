package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/ports"
	"github.com/vportnov/briefly/internal/infrastructure/resilience"
)

// Client summarizes text through the Gemini generateContent API with bounded
// retries, a per-request adaptive timeout and client-side rate limiting.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
	usage      ports.UsageTracker
}

type Options struct {
	// RequestsPerMinute bounds outgoing provider calls. Zero disables the
	// client-side limiter.
	RequestsPerMinute  int
	ResilienceExecutor *resilience.Executor
	UsageTracker       ports.UsageTracker
	HTTPClient         *http.Client
}

func New(baseURL, model, apiKey string, options Options) *Client {
	executor := options.ResilienceExecutor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		// No transport-level timeout: the adaptive per-call deadline is
		// the outer bound for the whole attempt loop.
		httpClient = &http.Client{}
	}
	var limiter *rate.Limiter
	if options.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(options.RequestsPerMinute)/60.0), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: httpClient,
		executor:   executor,
		limiter:    limiter,
		usage:      options.UsageTracker,
	}
}

// Summarize runs one summarization round-trip. Failures come back already
// classified; the raw transport error is never exposed past this boundary.
func (c *Client) Summarize(ctx context.Context, req domain.SummarizeRequest) (domain.SummarizeResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.SummarizeResponse{}, domain.Classify(domain.ErrAPIKeyMissing)
	}

	callCtx, cancel := context.WithTimeout(ctx, adaptiveTimeout(len(req.Text)))
	defer cancel()

	prompt := BuildPrompt(req)
	genCfg := generationConfigFor(len(req.Text))
	started := time.Now()

	var raw string
	err := c.executor.Execute(callCtx, "gemini.generate", func(attemptCtx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(attemptCtx); err != nil {
				return err
			}
		}
		text, genErr := c.generateContent(attemptCtx, prompt, genCfg)
		if genErr != nil {
			return genErr
		}
		raw = text
		return nil
	}, classifyProviderError)
	if err != nil {
		return domain.SummarizeResponse{}, domain.Classify(err)
	}

	if c.usage != nil {
		c.usage.RecordSummarize()
	}
	return ParseResponse(raw, time.Since(started).Milliseconds()), nil
}

// adaptiveTimeout scales the outer deadline with input size: short inputs
// fail fast, long documents get room for slow generations.
func adaptiveTimeout(inputLen int) time.Duration {
	switch {
	case inputLen < 1000:
		return 15 * time.Second
	case inputLen < 5000:
		return 30 * time.Second
	case inputLen < 10000:
		return 45 * time.Second
	default:
		return 60 * time.Second
	}
}

func generationConfigFor(inputLen int) generationConfig {
	maxTokens := 2048
	switch {
	case inputLen < 1000:
		maxTokens = 512
	case inputLen < 3000:
		maxTokens = 1024
	}
	return generationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: maxTokens,
	}
}
