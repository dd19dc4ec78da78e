package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vportnov/briefly/internal/core/ports"
	"github.com/vportnov/briefly/internal/infrastructure/extractor/pdftext"
	"github.com/vportnov/briefly/internal/infrastructure/extractor/plaintext"
)

// Router picks the extractor for an uploaded file by extension. Anything that
// is not a PDF is treated as plain text.
type Router struct {
	pdf   ports.TextExtractor
	plain ports.TextExtractor
}

func NewRouter() *Router {
	return &Router{
		pdf:   pdftext.New(),
		plain: plaintext.New(),
	}
}

func (r *Router) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return r.pdf.Extract(ctx, filename, data)
	}
	return r.plain.Extract(ctx, filename, data)
}
