// Package insight derives a per-query analytics record from the question,
// the model's answer and the retrieved chunks.
//
// Every measure is a deterministic heuristic over its inputs; nothing here
// calls out to a model. Thresholds come from config.InsightConfig.
package insight

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fyrsmithlabs/medichat/internal/config"
	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// Latency buckets.
const (
	LatencyFast     = "fast"
	LatencyModerate = "moderate"
	LatencySlow     = "slow"
)

// Complexity classes.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// Coverage labels.
const (
	CoverageNone     = "none"
	CoverageNarrow   = "narrow"
	CoverageModerate = "moderate"
	CoverageBroad    = "broad"
)

// Insight is the analytics record attached to a conversation turn.
type Insight struct {
	RelevantDocsCount int           `json:"relevant_docs_count"`
	ConfidenceScore   float64       `json:"confidence_score"`
	ResponseTime      string        `json:"response_time"`
	Elapsed           time.Duration `json:"elapsed"`
	QueryComplexity   string        `json:"query_complexity"`
	MedicalKeywords   []string      `json:"medical_keywords"`
	DocumentCoverage  string        `json:"document_coverage"`
	CoverageSummary   string        `json:"coverage_summary"`
	TotalChunks       int           `json:"total_chunks"`
}

// Input is everything Generate looks at.
type Input struct {
	Question    string
	Answer      string
	Results     []vectorstore.SearchResult
	TotalChunks int
	Elapsed     time.Duration
}

// Generator computes insights. It is safe for concurrent use.
type Generator struct {
	cfg   config.InsightConfig
	terms [][]string
	names []string
}

// New returns a Generator for cfg. Vocabulary terms are matched
// case-insensitively as whole words; multi-word terms match consecutive
// words.
func New(cfg config.InsightConfig) *Generator {
	g := &Generator{cfg: cfg}
	seen := make(map[string]bool)
	for _, v := range cfg.Vocabulary {
		words := tokenize(v)
		if len(words) == 0 {
			continue
		}
		key := strings.Join(words, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		g.terms = append(g.terms, words)
		g.names = append(g.names, key)
	}
	return g
}

// Generate computes the insight for one answered query.
func (g *Generator) Generate(in Input) Insight {
	question := tokenize(in.Question)
	answer := tokenize(in.Answer)

	var corpus []string
	for _, r := range in.Results {
		corpus = append(corpus, tokenize(r.Chunk.Text)...)
	}

	return Insight{
		RelevantDocsCount: len(in.Results),
		ConfidenceScore:   g.confidence(question, answer, in.Answer, corpus, len(in.Results)),
		ResponseTime:      g.latency(in.Elapsed),
		Elapsed:           in.Elapsed,
		QueryComplexity:   g.complexity(question),
		MedicalKeywords:   g.keywords(question, answer),
		DocumentCoverage:  g.coverage(len(in.Results), in.TotalChunks),
		CoverageSummary:   coverageSummary(len(in.Results), in.TotalChunks),
		TotalChunks:       in.TotalChunks,
	}
}

func (g *Generator) confidence(question, answer []string, rawAnswer string, corpus []string, results int) float64 {
	overlap := 0.0
	if results > 0 {
		overlap = g.overlap(question, corpus)
	}

	answerScore := 0.0
	if distinct(answer) >= 2 {
		answerScore = float64(len([]rune(strings.TrimSpace(rawAnswer)))) / float64(g.cfg.AnswerLengthCap)
		if answerScore > 1 {
			answerScore = 1
		}
	}

	return clamp(g.cfg.KeywordWeight*overlap + (1-g.cfg.KeywordWeight)*answerScore)
}

// overlap is the fraction of the question's vocabulary terms that appear
// in the retrieved text, or of its content words when it has none.
func (g *Generator) overlap(question, corpus []string) float64 {
	var needles [][]string
	for _, t := range g.terms {
		if containsSeq(question, t) {
			needles = append(needles, t)
		}
	}
	if len(needles) == 0 {
		seen := make(map[string]bool)
		for _, w := range question {
			if stopwords[w] || len([]rune(w)) < 3 || seen[w] {
				continue
			}
			seen[w] = true
			needles = append(needles, []string{w})
		}
	}
	if len(needles) == 0 {
		return 0
	}

	hits := 0
	for _, p := range needles {
		if containsSeq(corpus, p) {
			hits++
		}
	}
	return float64(hits) / float64(len(needles))
}

func (g *Generator) latency(d time.Duration) string {
	switch {
	case d < g.cfg.FastThreshold:
		return LatencyFast
	case d <= g.cfg.SlowThreshold:
		return LatencyModerate
	default:
		return LatencySlow
	}
}

func (g *Generator) complexity(question []string) string {
	n := len(question)
	class := 0
	switch {
	case n <= g.cfg.SimpleMaxWords:
		return ComplexitySimple
	case n <= g.cfg.MediumMaxWords:
		class = 1
	default:
		class = 2
	}

	occurrences := 0
	for _, t := range g.terms {
		occurrences += countSeq(question, t) * len(t)
	}
	if float64(occurrences)/float64(n) >= g.cfg.DenseKeywordRatio && class < 2 {
		class++
	}
	return []string{ComplexitySimple, ComplexityMedium, ComplexityComplex}[class]
}

func (g *Generator) keywords(question, answer []string) []string {
	out := []string{}
	for i, t := range g.terms {
		if len(out) >= g.cfg.MaxKeywords {
			break
		}
		if containsSeq(question, t) || containsSeq(answer, t) {
			out = append(out, g.names[i])
		}
	}
	return out
}

func (g *Generator) coverage(relevant, total int) string {
	if total <= 0 {
		return CoverageNone
	}
	ratio := float64(relevant) / float64(total)
	switch {
	case ratio >= g.cfg.BroadRatio:
		return CoverageBroad
	case ratio >= g.cfg.NarrowRatio:
		return CoverageModerate
	default:
		return CoverageNarrow
	}
}

func coverageSummary(relevant, total int) string {
	if total <= 0 {
		return "No documents indexed"
	}
	return fmt.Sprintf("Analyzed %d of %d document sections", relevant, total)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "which": true, "who": true, "how": true, "why": true,
	"when": true, "where": true, "does": true, "did": true, "can": true,
	"this": true, "that": true, "with": true, "from": true, "about": true,
	"there": true, "their": true, "have": true, "has": true, "had": true,
	"is": true, "of": true, "in": true, "to": true, "a": true, "an": true,
	"any": true, "you": true, "your": true, "tell": true, "please": true,
}

// tokenize lowercases s and splits it into letter/digit runs.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countSeq(words, seq []string) int {
	n := 0
	for i := 0; i+len(seq) <= len(words); i++ {
		if matchAt(words, seq, i) {
			n++
		}
	}
	return n
}

func containsSeq(words, seq []string) bool {
	for i := 0; i+len(seq) <= len(words); i++ {
		if matchAt(words, seq, i) {
			return true
		}
	}
	return false
}

func matchAt(words, seq []string, i int) bool {
	for j, w := range seq {
		if words[i+j] != w {
			return false
		}
	}
	return true
}

func distinct(words []string) int {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return len(set)
}

func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
