package vocabulary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyVocabulary is returned when no symptom or disease terms are given.
var ErrEmptyVocabulary = errors.New("vocabulary has no symptom or disease terms")

// Matcher extracts vocabulary terms from text. It holds no mutable state.
type Matcher struct {
	vocab    Vocabulary
	symptoms *TermSet
	diseases *TermSet
	genders  *TermSet
	genderOf map[string]Gender
}

// NewMatcher compiles v. The vocabulary is copied, so later changes to the
// caller's slices do not affect the matcher.
func NewMatcher(v Vocabulary) (*Matcher, error) {
	if len(v.Symptoms) == 0 && len(v.Diseases) == 0 {
		return nil, ErrEmptyVocabulary
	}

	symptoms, err := NewTermSet(v.Symptoms)
	if err != nil {
		return nil, fmt.Errorf("symptoms: %w", err)
	}
	diseases, err := NewTermSet(v.Diseases)
	if err != nil {
		return nil, fmt.Errorf("diseases: %w", err)
	}

	markerTerms := make([]string, 0, len(v.Genders))
	genderOf := make(map[string]Gender, len(v.Genders))
	for i, g := range v.Genders {
		if g.Gender == "" {
			return nil, fmt.Errorf("gender marker %d (%q): missing gender", i, g.Term)
		}
		key := strings.ToLower(strings.TrimSpace(g.Term))
		if _, dup := genderOf[key]; !dup {
			genderOf[key] = g.Gender
		}
		markerTerms = append(markerTerms, g.Term)
	}
	genders, err := NewTermSet(markerTerms)
	if err != nil {
		return nil, fmt.Errorf("gender markers: %w", err)
	}

	return &Matcher{
		vocab: Vocabulary{
			Symptoms: symptoms.Terms(),
			Diseases: diseases.Terms(),
			Genders:  append([]GenderMarker(nil), v.Genders...),
		},
		symptoms: symptoms,
		diseases: diseases,
		genders:  genders,
		genderOf: genderOf,
	}, nil
}

// NewDefaultMatcher returns a matcher over DefaultVocabulary.
func NewDefaultMatcher() *Matcher {
	m, err := NewMatcher(DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return m
}

// Extract returns the symptoms, diseases and gender present in text. It
// never fails: text without matches yields empty sets and GenderUnknown.
func (m *Matcher) Extract(text string) Result {
	return Result{
		Symptoms: m.symptoms.Find(text),
		Diseases: m.diseases.Find(text),
		Gender:   m.Gender(text),
	}
}

// Gender resolves the gender marker of text; the first marker in
// declaration order wins.
func (m *Matcher) Gender(text string) Gender {
	term, ok := m.genders.First(text)
	if !ok {
		return GenderUnknown
	}
	return m.genderOf[strings.ToLower(term)]
}

// Mentions counts how often each symptom and disease term occurs in text.
// A term that is both a symptom and a disease is counted once.
func (m *Matcher) Mentions(text string) map[string]int {
	counts := m.symptoms.Count(text)
	for term, n := range m.diseases.Count(text) {
		if _, ok := counts[term]; !ok {
			counts[term] = n
		}
	}
	return counts
}

// Symptoms returns the compiled symptom terms.
func (m *Matcher) Symptoms() *TermSet { return m.symptoms }

// Diseases returns the compiled disease terms.
func (m *Matcher) Diseases() *TermSet { return m.diseases }

// Vocabulary returns a copy of the vocabulary the matcher was built from.
func (m *Matcher) Vocabulary() Vocabulary {
	return Vocabulary{
		Symptoms: append([]string(nil), m.vocab.Symptoms...),
		Diseases: append([]string(nil), m.vocab.Diseases...),
		Genders:  append([]GenderMarker(nil), m.vocab.Genders...),
	}
}
