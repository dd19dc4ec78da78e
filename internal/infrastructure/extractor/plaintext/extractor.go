package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/vportnov/briefly/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrOCRFailed, "extract plain text",
			errors.New("file is not valid UTF-8: "+filename))
	}
	return strings.TrimSpace(string(data)), nil
}
