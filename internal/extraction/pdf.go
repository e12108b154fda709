package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/objectstore"
)

var contentPageFile = regexp.MustCompile(`_Content_page_(\d+)\.txt$`)

// PDFExtractor extracts page text from PDFs with pdfcpu.
type PDFExtractor struct {
	tempDir string
	logger  *zap.Logger
}

// NewPDFExtractor returns a PDFExtractor using the system temp directory.
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{tempDir: os.TempDir(), logger: logger}
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, name string, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	work, err := os.MkdirTemp(e.tempDir, "medichat-pdf-")
	if err != nil {
		return Document{}, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(work)

	inFile := filepath.Join(work, "upload.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return Document{}, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, name, err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(work, "content")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return Document{}, fmt.Errorf("failed to create content directory: %w", err)
	}
	if err := api.ExtractContentFile(inFile, outDir, nil, conf); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, name, err)
	}

	pageTexts, err := readContentFiles(outDir)
	if err != nil {
		return Document{}, err
	}

	// PageCount is only as reliable as the page tree; trust the streams.
	for n := range pageTexts {
		if n > pageCount {
			pageCount = n
		}
	}

	pages := make([]Page, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		pages = append(pages, Page{Number: n, Text: Clean(pageTexts[n])})
	}

	e.logger.Debug("pdf extracted",
		zap.String("name", name),
		zap.Int("pages", pageCount),
		zap.Int("pages_with_text", len(pageTexts)),
	)
	return Document{ID: objectstore.ContentHash(data), Name: name, Pages: pages}, nil
}

// readContentFiles decodes the per-page content streams pdfcpu wrote to dir.
func readContentFiles(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}
	texts := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := contentPageFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d content: %w", page, err)
		}
		if text := DecodeContentStream(raw); text != "" {
			if prev, ok := texts[page]; ok {
				text = prev + "\n" + text
			}
			texts[page] = text
		}
	}
	return texts, nil
}
