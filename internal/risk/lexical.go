package risk

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

// LexicalRules are the term lists of the lexical strategy.
type LexicalRules struct {
	High     []string
	Moderate []string
}

// DefaultLexicalRules returns the built-in high and moderate risk terms.
func DefaultLexicalRules() LexicalRules {
	return LexicalRules{
		High:     []string{"dyspnea", "difficulty breathing", "ARDS"},
		Moderate: []string{"fever", "fatigue", "COVID-19"},
	}
}

// Lexical classifies by term presence. High-risk terms are checked first,
// so text containing both a high and a moderate term is High.
type Lexical struct {
	high     *vocabulary.TermSet
	moderate *vocabulary.TermSet
}

// NewLexical compiles rules with the same word-boundary matching as the
// vocabulary matcher.
func NewLexical(rules LexicalRules) (*Lexical, error) {
	if len(rules.High) == 0 && len(rules.Moderate) == 0 {
		return nil, errors.New("no lexical risk terms")
	}
	high, err := vocabulary.NewTermSet(rules.High)
	if err != nil {
		return nil, err
	}
	moderate, err := vocabulary.NewTermSet(rules.Moderate)
	if err != nil {
		return nil, err
	}
	return &Lexical{high: high, moderate: moderate}, nil
}

// NewDefaultLexical returns a Lexical classifier over DefaultLexicalRules.
func NewDefaultLexical() *Lexical {
	l, err := NewLexical(DefaultLexicalRules())
	if err != nil {
		panic(err)
	}
	return l
}

// Tier returns the tier of text.
func (l *Lexical) Tier(text string) Tier {
	if l.high.Any(text) {
		return TierHigh
	}
	if l.moderate.Any(text) {
		return TierModerate
	}
	return TierLow
}

// Classify implements Classifier. It never returns an error.
func (l *Lexical) Classify(_ context.Context, text string) (Tier, error) {
	return l.Tier(text), nil
}

// Name implements Classifier.
func (l *Lexical) Name() Strategy { return StrategyLexical }
