package domain

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	ErrSummaryNotFound = errors.New("summary not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTemporary       = errors.New("temporary failure")
	ErrJobCancelled    = errors.New("job cancelled")
)

// Provider-level failure signals. The transport maps provider responses onto
// these sentinels so classification never inspects raw payloads.
var (
	ErrModelOverloaded = errors.New("model overloaded")
	ErrModelLoading    = errors.New("model loading")
	ErrContentFiltered = errors.New("content filtered by provider safety")
	ErrQuotaExceeded   = errors.New("provider quota exceeded")
	ErrAPIKeyMissing   = errors.New("api key missing")
	ErrAPIKeyInvalid   = errors.New("api key invalid")
	ErrTextTooShort    = errors.New("text too short to summarize")
	ErrOCRFailed       = errors.New("text extraction failed")
	ErrStorageFull     = errors.New("storage full")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode is the closed taxonomy of application errors surfaced to hosts.
type ErrorCode string

const (
	ErrorNetwork       ErrorCode = "network_error"
	ErrorServer        ErrorCode = "server_error"
	ErrorRateLimit     ErrorCode = "rate_limit_error"
	ErrorTextTooShort  ErrorCode = "text_too_short_error"
	ErrorOCRFailed     ErrorCode = "ocr_failed_error"
	ErrorInvalidInput  ErrorCode = "invalid_input_error"
	ErrorStorageFull   ErrorCode = "storage_full_error"
	ErrorModelLoading  ErrorCode = "model_loading_error"
	ErrorAPIKey        ErrorCode = "api_key_error"
	ErrorInvalidAPIKey ErrorCode = "invalid_api_key_error"
	ErrorUnknown       ErrorCode = "unknown_error"
)

// AppError is a classified application error. Transient carries the
// retryability verdict computed at classification time, so the retry loop
// never depends on runtime type inspection of raw exceptions.
type AppError struct {
	Code      ErrorCode
	Message   string
	ResetAt   time.Time
	Transient bool
	cause     error
}

func (e *AppError) Error() string {
	if e == nil {
		return string(ErrorUnknown)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsRetryable reports whether a classified error may be retried. It is a pure
// read of the classification; unclassified errors are classified first.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var app *AppError
	if errors.As(err, &app) {
		return app.Transient
	}
	return Classify(err).Transient
}

// httpStatusCarrier is satisfied by transport errors that know their HTTP
// status code, without the classifier importing the transport package.
type httpStatusCarrier interface {
	HTTPStatusCode() int
}

// Classify maps an arbitrary error into the closed AppError taxonomy.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var app *AppError
	if errors.As(err, &app) {
		return app
	}

	switch {
	case errors.Is(err, ErrQuotaExceeded):
		// Daily quota exhaustion must never be retried automatically,
		// regardless of the transport-level 429.
		return &AppError{
			Code:    ErrorRateLimit,
			Message: err.Error(),
			ResetAt: time.Now().Add(24 * time.Hour),
			cause:   err,
		}
	case errors.Is(err, ErrContentFiltered):
		return &AppError{Code: ErrorInvalidInput, Message: err.Error(), cause: err}
	case errors.Is(err, ErrModelOverloaded):
		return &AppError{Code: ErrorServer, Message: err.Error(), Transient: true, cause: err}
	case errors.Is(err, ErrModelLoading):
		return &AppError{Code: ErrorModelLoading, Message: err.Error(), Transient: true, cause: err}
	case errors.Is(err, ErrAPIKeyMissing):
		return &AppError{Code: ErrorAPIKey, Message: err.Error(), cause: err}
	case errors.Is(err, ErrAPIKeyInvalid):
		return &AppError{Code: ErrorInvalidAPIKey, Message: err.Error(), cause: err}
	case errors.Is(err, ErrTextTooShort):
		return &AppError{Code: ErrorTextTooShort, Message: err.Error(), cause: err}
	case errors.Is(err, ErrOCRFailed):
		return &AppError{Code: ErrorOCRFailed, Message: err.Error(), cause: err}
	case errors.Is(err, ErrStorageFull):
		return &AppError{Code: ErrorStorageFull, Message: err.Error(), cause: err}
	}

	var statusErr httpStatusCarrier
	if errors.As(err, &statusErr) {
		return classifyHTTPStatus(statusErr.HTTPStatusCode(), err)
	}

	if isTLSError(err) {
		return &AppError{Code: ErrorNetwork, Message: err.Error(), cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &AppError{Code: ErrorNetwork, Message: err.Error(), Transient: true, cause: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The adaptive per-call timeout is the outer bound of the retry
		// loop; once it fires there is nothing left to retry against.
		return &AppError{Code: ErrorNetwork, Message: err.Error(), cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &AppError{Code: ErrorNetwork, Message: err.Error(), Transient: true, cause: err}
	}

	return &AppError{Code: ErrorUnknown, Message: err.Error(), cause: err}
}

func classifyHTTPStatus(code int, err error) *AppError {
	switch {
	case code == 400:
		return &AppError{Code: ErrorInvalidInput, Message: err.Error(), cause: err}
	case code == 401 || code == 403:
		return &AppError{Code: ErrorServer, Message: err.Error(), cause: err}
	case code == 429:
		return &AppError{
			Code:      ErrorRateLimit,
			Message:   err.Error(),
			ResetAt:   time.Now().Add(60 * time.Second),
			Transient: true,
			cause:     err,
		}
	case code == 500 || code == 502 || code == 503:
		return &AppError{Code: ErrorServer, Message: err.Error(), Transient: true, cause: err}
	default:
		return &AppError{Code: ErrorUnknown, Message: err.Error(), cause: err}
	}
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var certErr x509.CertificateInvalidError
	return errors.As(err, &certErr)
}
