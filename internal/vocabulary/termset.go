package vocabulary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyTerm is returned when a term list contains a blank entry.
var ErrEmptyTerm = errors.New("empty term")

// TermSet is an ordered list of terms compiled to word-boundary patterns.
// It is immutable and safe for concurrent use.
type TermSet struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewTermSet compiles terms. Case-insensitive duplicates keep the first
// spelling.
func NewTermSet(terms []string) (*TermSet, error) {
	ts := &TermSet{
		terms:    make([]string, 0, len(terms)),
		patterns: make([]*regexp.Regexp, 0, len(terms)),
	}
	seen := make(map[string]bool, len(terms))

	for i, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("term %d: %w", i, ErrEmptyTerm)
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true

		re, err := regexp.Compile(termPattern(term))
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		ts.terms = append(ts.terms, term)
		ts.patterns = append(ts.patterns, re)
	}
	return ts, nil
}

// MustTermSet is NewTermSet for static term lists.
func MustTermSet(terms []string) *TermSet {
	ts, err := NewTermSet(terms)
	if err != nil {
		panic(err)
	}
	return ts
}

// termPattern anchors a term on word boundaries. \b is only added next to
// word characters, since "COVID-19)" style edges have no boundary to match.
// Words of a multi-word term may be separated by any whitespace run.
func termPattern(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s+`)

	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)

	var b strings.Builder
	b.WriteString("(?i)")
	if isWordRune(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(body)
	if isWordRune(last) {
		b.WriteString(`\b`)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Terms returns a copy of the terms in declaration order.
func (ts *TermSet) Terms() []string {
	return append([]string(nil), ts.terms...)
}

// Len returns the number of distinct terms.
func (ts *TermSet) Len() int {
	return len(ts.terms)
}

// Find returns the terms present in text, in declaration order.
func (ts *TermSet) Find(text string) []string {
	found := make([]string, 0)
	for i, re := range ts.patterns {
		if re.MatchString(text) {
			found = append(found, ts.terms[i])
		}
	}
	return found
}

// Any reports whether any term is present in text.
func (ts *TermSet) Any(text string) bool {
	_, ok := ts.First(text)
	return ok
}

// First returns the first term in declaration order present in text.
func (ts *TermSet) First(text string) (string, bool) {
	for i, re := range ts.patterns {
		if re.MatchString(text) {
			return ts.terms[i], true
		}
	}
	return "", false
}

// Count returns non-overlapping mention counts for terms present in text.
func (ts *TermSet) Count(text string) map[string]int {
	counts := make(map[string]int)
	for i, re := range ts.patterns {
		if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
			counts[ts.terms[i]] = n
		}
	}
	return counts
}
