// Package redact masks secrets in arbitrary JSON-like value trees.
// The transform is lossy and one-way: matched spans are overwritten
// character by character, keeping total string length and the
// structural punctuation a re-parsed JSON document needs.
package redact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/loglens/loglens/internal/logging"
)

const maskRune = '*'

// structuralRunes survive masking so redacted JSON stays parseable.
const structuralRunes = "\n\r\t\"':,{}[]\\"

// PatternSet is an immutable compiled pattern list, built once and
// passed by reference.
type PatternSet struct {
	compiled []*regexp.Regexp
}

// NewPatternSet compiles patterns in order. A pattern that fails to
// compile fails the whole set.
func NewPatternSet(patterns []Pattern) (*PatternSet, error) {
	s := &PatternSet{
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		expr := p.Regex
		if p.Insensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf(
				"compiling pattern %q: %w", p.Name, err,
			)
		}
		s.compiled = append(s.compiled, re)
	}
	return s, nil
}

var (
	defaultSet  *PatternSet
	defaultOnce sync.Once
)

// Default returns the process-wide set built from the shipped
// pattern list.
func Default() *PatternSet {
	defaultOnce.Do(func() {
		if !semver.IsValid(PatternListVersion) {
			logging.Warnf(
				"pattern list version %q is not valid semver",
				PatternListVersion,
			)
		}
		var err error
		defaultSet, err = NewPatternSet(DefaultPatterns())
		if err != nil {
			logging.Errorf("compiling default patterns: %v", err)
			defaultSet = &PatternSet{}
		}
	})
	return defaultSet
}

// Redact walks a JSON-like value tree and masks every string leaf.
// Maps, slices and strings are rebuilt; time.Time values pass
// through untouched; any other value is returned as is.
func (s *PatternSet) Redact(v any) any {
	switch val := v.(type) {
	case string:
		return s.RedactString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = s.Redact(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = s.Redact(child)
		}
		return out
	case json.RawMessage:
		return json.RawMessage(s.RedactString(string(val)))
	case time.Time:
		return val
	default:
		return v
	}
}

// RedactString applies every pattern in order, each over the output
// of the previous one. len(out) == len(in) always.
func (s *PatternSet) RedactString(in string) string {
	out := in
	for _, re := range s.compiled {
		out = re.ReplaceAllStringFunc(out, maskSpan)
	}
	return out
}

// maskSpan overwrites a matched span, preserving structural runes
// in place.
func maskSpan(match string) string {
	runes := []rune(match)
	for i, r := range runes {
		if isStructural(r) {
			continue
		}
		runes[i] = maskRune
	}
	return string(runes)
}

func isStructural(r rune) bool {
	for _, s := range structuralRunes {
		if r == s {
			return true
		}
	}
	return false
}
