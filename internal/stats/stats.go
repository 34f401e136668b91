// Package stats aggregates per-conversation extractions into corpus-wide
// statistics.
//
// A Stats value is never modified after construction. Add and Merge return new
// values, and every accessor returns a copy, so a published snapshot can be
// read from any goroutine without locking. Merge is commutative and
// associative, which lets workers aggregate disjoint chunks independently.
package stats

import (
	"maps"
	"unicode/utf8"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

// Pair is a (symptom, disease) co-occurrence key.
type Pair struct {
	Symptom string `json:"symptom"`
	Disease string `json:"disease"`
}

// Record is the per-conversation input to aggregation.
type Record struct {
	Extraction vocabulary.Result
	// Length is the raw character count of the conversation.
	Length int
	Tier   risk.Tier
}

// NewRecord builds a Record, measuring text in runes.
func NewRecord(text string, extraction vocabulary.Result, tier risk.Tier) Record {
	return Record{
		Extraction: extraction,
		Length:     utf8.RuneCountInString(text),
		Tier:       tier,
	}
}

// Stats is an immutable aggregate over a set of conversations.
type Stats struct {
	total        int
	symptoms     map[string]int
	diseases     map[string]int
	cooccurrence map[Pair]int
	lengths      map[int]int
	genders      map[vocabulary.Gender]int
	risks        map[risk.Tier]int
}

func newStats() *Stats {
	return &Stats{
		symptoms:     make(map[string]int),
		diseases:     make(map[string]int),
		cooccurrence: make(map[Pair]int),
		lengths:      make(map[int]int),
		genders:      make(map[vocabulary.Gender]int),
		risks:        make(map[risk.Tier]int),
	}
}

// Empty returns the aggregate of no conversations.
func Empty() *Stats {
	return newStats()
}

// Aggregate builds statistics over records.
func Aggregate(records []Record) *Stats {
	s := newStats()
	for _, r := range records {
		s.apply(r)
	}
	return s
}

// Add returns a new Stats that also counts r.
func (s *Stats) Add(r Record) *Stats {
	next := s.clone()
	next.apply(r)
	return next
}

// Merge returns the aggregate of the conversations counted by a and b.
// A nil argument counts as empty.
func Merge(a, b *Stats) *Stats {
	out := a.clone()
	if b == nil {
		return out
	}
	out.total += b.total
	addCounts(out.symptoms, b.symptoms)
	addCounts(out.diseases, b.diseases)
	addCounts(out.cooccurrence, b.cooccurrence)
	addCounts(out.lengths, b.lengths)
	addCounts(out.genders, b.genders)
	addCounts(out.risks, b.risks)
	return out
}

// apply must only be called on a value that has not been published.
func (s *Stats) apply(r Record) {
	s.total++

	symptoms := dedupe(r.Extraction.Symptoms)
	diseases := dedupe(r.Extraction.Diseases)
	for _, sym := range symptoms {
		s.symptoms[sym]++
	}
	for _, dis := range diseases {
		s.diseases[dis]++
	}
	for _, sym := range symptoms {
		for _, dis := range diseases {
			s.cooccurrence[Pair{Symptom: sym, Disease: dis}]++
		}
	}

	s.lengths[r.Length]++

	gender := r.Extraction.Gender
	if gender == "" {
		gender = vocabulary.GenderUnknown
	}
	s.genders[gender]++

	if r.Tier.Valid() {
		s.risks[r.Tier]++
	}
}

func (s *Stats) clone() *Stats {
	if s == nil {
		return newStats()
	}
	return &Stats{
		total:        s.total,
		symptoms:     maps.Clone(s.symptoms),
		diseases:     maps.Clone(s.diseases),
		cooccurrence: maps.Clone(s.cooccurrence),
		lengths:      maps.Clone(s.lengths),
		genders:      maps.Clone(s.genders),
		risks:        maps.Clone(s.risks),
	}
}

func addCounts[K comparable](dst, src map[K]int) {
	for k, v := range src {
		dst[k] += v
	}
}

// dedupe keeps set semantics even if a caller builds a Result by hand.
func dedupe(terms []string) []string {
	if len(terms) < 2 {
		return terms
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
