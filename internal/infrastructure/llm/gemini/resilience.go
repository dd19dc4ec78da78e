package gemini

import (
	"context"
	"errors"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/infrastructure/resilience"
)

// classifyProviderError adapts the domain classifier to the retry loop. The
// verdict is read off the classified error; no raw type inspection happens
// here.
func classifyProviderError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	class := domain.Classify(err)
	return resilience.ErrorClassification{
		Retryable:     class.Transient,
		RateLimited:   class.Code == domain.ErrorRateLimit && class.Transient,
		RecordFailure: class.Transient || class.Code == domain.ErrorUnknown,
	}
}
