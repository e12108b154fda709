package extraction

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors.
var (
	ErrUnreadablePDF   = errors.New("unreadable pdf")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// PageSeparator joins page texts in Document.Text.
const PageSeparator = "\n\n"

// Page is the text of one page, numbered from 1.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is an extracted upload. ID is the content hash of the raw bytes.
type Document struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Text returns the concatenated page text.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, PageSeparator)
}

// Extractor converts raw file bytes into a Document.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (Document, error)
}
