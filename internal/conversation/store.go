package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/medichat/internal/insight"
)

// Source identifies a chunk that contributed context to an answer.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float32 `json:"score"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

// Turn is one answered question.
type Turn struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Insight   insight.Insight `json:"insight"`
	Sources   []Source        `json:"sources,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is an in-memory, append-only turn log. The zero value is ready to use.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds turn to the end of the log, filling ID and Timestamp when
// unset, and returns the stored turn.
func (s *Store) Append(turn Turn) Turn {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	turn.Sources = append([]Source(nil), turn.Sources...)

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	return turn
}

// Turns returns a copy of every turn, oldest first.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn{}, s.turns...)
}

// Last returns up to n most recent turns, oldest first.
func (s *Store) Last(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []Turn{}
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	return append([]Turn{}, s.turns[start:]...)
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear drops every turn.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

// AverageConfidence returns the mean confidence over all turns, or 0 for
// an empty log.
func (s *Store) AverageConfidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return 0
	}
	var sum float64
	for _, t := range s.turns {
		sum += t.Insight.ConfidenceScore
	}
	return sum / float64(len(s.turns))
}
