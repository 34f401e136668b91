package stats

import (
	"maps"
	"sort"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

// TermCount is a term with the number of conversations containing it.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Bucket is one bin of the length histogram, covering [Lower, Upper).
// The last bucket also includes Upper.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Total returns the number of conversations aggregated.
func (s *Stats) Total() int { return s.total }

// SymptomCount returns the number of conversations mentioning symptom.
func (s *Stats) SymptomCount(symptom string) int { return s.symptoms[symptom] }

// DiseaseCount returns the number of conversations mentioning disease.
func (s *Stats) DiseaseCount(disease string) int { return s.diseases[disease] }

// Cooccurrence returns the number of conversations mentioning both terms.
func (s *Stats) Cooccurrence(symptom, disease string) int {
	return s.cooccurrence[Pair{Symptom: symptom, Disease: disease}]
}

// CooccurrenceMatrix returns symptom -> disease -> count for every pair seen
// at least once.
func (s *Stats) CooccurrenceMatrix() map[string]map[string]int {
	out := make(map[string]map[string]int)
	for p, n := range s.cooccurrence {
		row, ok := out[p.Symptom]
		if !ok {
			row = make(map[string]int)
			out[p.Symptom] = row
		}
		row[p.Disease] = n
	}
	return out
}

// SymptomCounts returns the count for every symptom seen.
func (s *Stats) SymptomCounts() map[string]int { return maps.Clone(s.symptoms) }

// DiseaseCounts returns the count for every disease seen.
func (s *Stats) DiseaseCounts() map[string]int { return maps.Clone(s.diseases) }

// LengthHistogram maps a character count to the number of conversations of
// that length.
func (s *Stats) LengthHistogram() map[int]int { return maps.Clone(s.lengths) }

// GenderCounts includes Unknown.
func (s *Stats) GenderCounts() map[vocabulary.Gender]int { return maps.Clone(s.genders) }

// RiskCounts returns the number of conversations per tier.
func (s *Stats) RiskCounts() map[risk.Tier]int { return maps.Clone(s.risks) }

// UniqueSymptoms returns how many distinct symptoms were seen.
func (s *Stats) UniqueSymptoms() int { return len(s.symptoms) }

// UniqueDiseases returns how many distinct diseases were seen.
func (s *Stats) UniqueDiseases() int { return len(s.diseases) }

// TopSymptoms returns the n most frequent symptoms. n <= 0 returns all.
func (s *Stats) TopSymptoms(n int) []TermCount { return top(s.symptoms, n) }

// TopDiseases returns the n most frequent diseases. n <= 0 returns all.
func (s *Stats) TopDiseases(n int) []TermCount { return top(s.diseases, n) }

// top orders by count descending, then term ascending.
func top(counts map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, c := range counts {
		out = append(out, TermCount{Term: term, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// LengthBuckets groups conversation lengths into n equal-width bins spanning
// the shortest to the longest conversation. It returns nil for an empty
// aggregate or n <= 0.
func (s *Stats) LengthBuckets(n int) []Bucket {
	if n <= 0 || len(s.lengths) == 0 {
		return nil
	}

	lo, hi := -1, 0
	for l := range s.lengths {
		if lo < 0 || l < lo {
			lo = l
		}
		if l > hi {
			hi = l
		}
	}

	if lo == hi {
		// Single distinct length: one bin around it.
		return []Bucket{{Lower: float64(lo), Upper: float64(hi), Count: s.total}}
	}

	width := float64(hi-lo) / float64(n)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Lower = float64(lo) + float64(i)*width
		buckets[i].Upper = float64(lo) + float64(i+1)*width
	}
	buckets[n-1].Upper = float64(hi)

	for l, c := range s.lengths {
		i := int(float64(l-lo) / width)
		if i >= n {
			i = n - 1
		}
		buckets[i].Count += c
	}
	return buckets
}
