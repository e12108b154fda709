// Package chunker splits extracted document text into overlapping windows
// that serve as the retrieval unit.
//
// Windows are measured in runes. Consecutive windows share Overlap runes, so
// every rune of the input is covered by at least one chunk. When
// SnapLookback is positive the cut point may move back to the nearest
// paragraph or sentence break, as long as the window still extends past the
// previous chunk's overlap region.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned for a non-positive window or an overlap that
// is negative or not smaller than the window.
var ErrInvalidConfig = errors.New("invalid chunking configuration")

// Chunk is a window of a document's text. Start and End are rune offsets
// into the source, End exclusive.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Config controls window size, overlap and boundary snapping.
type Config struct {
	Window       int
	Overlap      int
	SnapLookback int
}

// Validate checks the window and overlap invariants.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, c.Window)
	}
	if c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, c.Window, c.Overlap)
	}
	if c.SnapLookback < 0 {
		return fmt.Errorf("%w: snap lookback must be >= 0, got %d", ErrInvalidConfig, c.SnapLookback)
	}
	return nil
}

// Chunker splits documents according to a validated Config.
type Chunker struct {
	cfg Config
}

// New returns a Chunker, or ErrInvalidConfig.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split chunks text and stamps each chunk with documentID and a stable ID.
// Empty text yields no chunks.
func (c *Chunker) Split(documentID, text string) []Chunk {
	chunks := split([]rune(text), c.cfg)
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].ID = fmt.Sprintf("%s#%d", documentID, chunks[i].Index)
	}
	return chunks
}

// SplitText splits text with raw character cuts and no boundary snapping.
func SplitText(text string, window, overlap int) ([]Chunk, error) {
	cfg := Config{Window: window, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return split([]rune(text), cfg), nil
}

func split(runes []rune, cfg Config) []Chunk {
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + cfg.Window
		if end >= n {
			end = n
		} else if cfg.SnapLookback > 0 {
			end = snap(runes, start+cfg.Overlap, end, cfg.SnapLookback)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == n {
			return chunks
		}
		start = end - cfg.Overlap
	}
}

// snap moves cut back to just after a paragraph break, else a sentence
// break, searching at most lookback runes. The result is always greater
// than floor, so the next window starts after the current one and no text
// is skipped.
func snap(runes []rune, floor, cut, lookback int) int {
	lo := cut - lookback
	if lo <= floor {
		lo = floor + 1
	}
	if lo >= cut {
		return cut
	}

	// Paragraph break: cut after "\n\n".
	for i := cut; i >= lo; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Sentence break: cut after terminal punctuation followed by whitespace,
	// or after a single newline.
	for i := cut; i >= lo; i-- {
		if i < 1 || i >= len(runes) {
			continue
		}
		prev := runes[i-1]
		if prev == '\n' {
			return i
		}
		if strings.ContainsRune(".!?", prev) && isSpace(runes[i]) {
			return i
		}
	}
	return cut
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
