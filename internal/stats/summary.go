package stats

import (
	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

// Summary is the serializable view of a Stats snapshot.
type Summary struct {
	Total          int                       `json:"total_conversations"`
	UniqueSymptoms int                       `json:"unique_symptoms"`
	UniqueDiseases int                       `json:"unique_diseases"`
	Symptoms       []TermCount               `json:"symptoms"`
	Diseases       []TermCount               `json:"diseases"`
	Genders        map[vocabulary.Gender]int `json:"genders"`
	Risk           map[risk.Tier]int         `json:"risk"`
}

// Summary returns the highlight numbers together with the full frequency
// tables, ordered most frequent first.
func (s *Stats) Summary() Summary {
	return Summary{
		Total:          s.total,
		UniqueSymptoms: s.UniqueSymptoms(),
		UniqueDiseases: s.UniqueDiseases(),
		Symptoms:       s.TopSymptoms(0),
		Diseases:       s.TopDiseases(0),
		Genders:        s.GenderCounts(),
		Risk:           s.RiskCounts(),
	}
}
