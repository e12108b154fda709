package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/medichat/internal/objectstore"
)

// PlainTextExtractor reads UTF-8 text files as a single page.
type PlainTextExtractor struct{}

// Extract implements Extractor.
func (PlainTextExtractor) Extract(ctx context.Context, name string, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedType, name)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return Document{
		ID:    objectstore.ContentHash(data),
		Name:  name,
		Pages: []Page{{Number: 1, Text: Clean(text)}},
	}, nil
}
