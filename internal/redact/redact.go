// Package redact removes credentials from text before it leaves the
// process by email.
//
// Known token formats are found with the gitleaks default ruleset. Extra
// rules are plain regular expressions; when a pattern has a capture group
// only the group is replaced.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// DefaultMarker replaces redacted spans.
const DefaultMarker = "[REDACTED]"

// Rule is a pattern-based redaction rule.
type Rule struct {
	ID      string
	Pattern string
}

// DefaultRules returns the assignment patterns applied by default. They
// catch credentials typed as "key: value" that have no recognizable
// token format.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "password-assignment", Pattern: `(?i)\b(?:password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"]{6,})`},
		{ID: "key-assignment", Pattern: `(?i)\b(?:api[_-]?key|secret|access[_-]?token)\s*[:=]\s*['"]?([A-Za-z0-9_\-./+]{12,})`},
	}
}

// Config configures a Scrubber.
type Config struct {
	// Credentials enables gitleaks credential detection.
	Credentials bool
	Rules       []Rule
	Marker      string
}

// DefaultConfig enables credential detection and the default rules.
func DefaultConfig() Config {
	return Config{Credentials: true, Rules: DefaultRules(), Marker: DefaultMarker}
}

// Result is the outcome of one Scrub call.
type Result struct {
	Text string
	// ByRule counts redactions per rule ID.
	ByRule map[string]int
}

// Count returns the total number of redactions.
func (r Result) Count() int {
	n := 0
	for _, c := range r.ByRule {
		n += c
	}
	return n
}

type compiledRule struct {
	id      string
	pattern *regexp.Regexp
}

// Scrubber redacts text. It is safe for concurrent use.
type Scrubber struct {
	marker string
	rules  []compiledRule

	mu       sync.Mutex // guards detector
	detector *detect.Detector
}

// New compiles cfg into a Scrubber.
func New(cfg Config) (*Scrubber, error) {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	s := &Scrubber{marker: cfg.Marker}
	for i, r := range cfg.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		s.rules = append(s.rules, compiledRule{id: r.ID, pattern: re})
	}
	if cfg.Credentials {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("loading credential rules: %w", err)
		}
		s.detector = d
	}
	return s, nil
}

// span is a byte range to replace.
type span struct {
	start, end int
	ruleID     string
}

// Scrub returns text with every detected credential replaced by the
// marker.
func (s *Scrubber) Scrub(text string) Result {
	result := Result{Text: text, ByRule: map[string]int{}}
	if s == nil || text == "" {
		return result
	}

	var spans []span
	for _, secret := range s.credentials(text) {
		for from := 0; ; {
			i := strings.Index(text[from:], secret.value)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, span{start, start + len(secret.value), secret.ruleID})
			from = start + len(secret.value)
		}
	}
	for _, r := range s.rules {
		for _, idx := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[0], idx[1]
			if len(idx) >= 4 && idx[2] >= 0 {
				start, end = idx[2], idx[3]
			}
			spans = append(spans, span{start, end, r.id})
		}
	}
	if len(spans) == 0 {
		return result
	}

	for _, sp := range spans {
		result.ByRule[sp.ruleID]++
	}
	merged := mergeSpans(spans)

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, sp := range merged {
		b.WriteString(text[last:sp.start])
		b.WriteString(s.marker)
		last = sp.end
	}
	b.WriteString(text[last:])
	result.Text = b.String()
	return result
}

type credential struct {
	value  string
	ruleID string
}

func (s *Scrubber) credentials(text string) []credential {
	if s.detector == nil {
		return nil
	}
	s.mu.Lock()
	findings := s.detector.DetectString(text)
	s.mu.Unlock()

	out := make([]credential, 0, len(findings))
	for _, f := range findings {
		value := f.Secret
		if value == "" {
			value = f.Match
		}
		if value != "" {
			out = append(out, credential{value: value, ruleID: f.RuleID})
		}
	}
	return out
}

// mergeSpans sorts spans and merges overlapping or adjacent ones.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, cur := range spans[1:] {
		last := &merged[len(merged)-1]
		if cur.start <= last.end {
			if cur.end > last.end {
				last.end = cur.end
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
