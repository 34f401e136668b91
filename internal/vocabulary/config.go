package vocabulary

import (
	"fmt"

	"github.com/fyrsmithlabs/medtriage/internal/config"
)

// FromConfig overlays the configured term lists on the defaults. Each
// empty list keeps its default.
func FromConfig(cfg config.VocabularyConfig) (Vocabulary, error) {
	v := DefaultVocabulary()
	if len(cfg.Symptoms) > 0 {
		v.Symptoms = append([]string(nil), cfg.Symptoms...)
	}
	if len(cfg.Diseases) > 0 {
		v.Diseases = append([]string(nil), cfg.Diseases...)
	}
	if len(cfg.Genders) > 0 {
		v.Genders = make([]GenderMarker, 0, len(cfg.Genders))
		for i, g := range cfg.Genders {
			gender, err := ParseGender(g.Gender)
			if err != nil {
				return Vocabulary{}, fmt.Errorf("genders[%d]: %w", i, err)
			}
			v.Genders = append(v.Genders, GenderMarker{Term: g.Term, Gender: gender})
		}
	}
	return v, nil
}

// NewMatcherFromConfig builds a matcher from the vocabulary section.
func NewMatcherFromConfig(cfg config.VocabularyConfig) (*Matcher, error) {
	v, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewMatcher(v)
}
