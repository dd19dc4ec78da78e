package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vportnov/briefly/internal/core/domain"
)

// Extractor pulls the embedded text layer out of a PDF. Scanned documents
// without a text layer come back empty and are rejected the same way as
// unreadable files.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename string, data []byte) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.WrapError(domain.ErrOCRFailed, "extract pdf text",
				fmt.Errorf("parser panic on %s: %v", filename, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrOCRFailed, "extract pdf text", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrOCRFailed, "extract pdf text", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", domain.WrapError(domain.ErrOCRFailed, "extract pdf text", err)
	}

	out := strings.TrimSpace(string(raw))
	if out == "" {
		return "", domain.WrapError(domain.ErrOCRFailed, "extract pdf text",
			fmt.Errorf("no text layer in %s", filename))
	}
	return out, nil
}
