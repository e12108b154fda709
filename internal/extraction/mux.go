package extraction

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Mux dispatches to an Extractor by content sniffing, then by extension.
type Mux struct {
	pdf    Extractor
	text   Extractor
	logger *zap.Logger
}

// NewMux returns the default extractor set.
func NewMux(logger *zap.Logger) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mux{
		pdf:    NewPDFExtractor(logger),
		text:   PlainTextExtractor{},
		logger: logger,
	}
}

// Extract implements Extractor.
func (m *Mux) Extract(ctx context.Context, name string, data []byte) (Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")) || ext == ".pdf":
		return m.pdf.Extract(ctx, name, data)
	case ext == ".txt" || ext == ".md" || ext == ".markdown" || ext == "":
		return m.text.Extract(ctx, name, data)
	default:
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
}
