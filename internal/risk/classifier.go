package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

// Strategy names a classification strategy.
type Strategy string

const (
	StrategyLexical   Strategy = config.StrategyLexical
	StrategySentiment Strategy = config.StrategySentiment
)

// ErrClassificationUnavailable is returned when the sentiment capability
// cannot process the input (empty text, backend unreachable, bad response).
var ErrClassificationUnavailable = errors.New("classification unavailable")

// Classifier produces a risk tier for conversation text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Tier, error)
	Name() Strategy
}

// New builds the classifier selected by cfg.Strategy. The sentiment strategy
// requires an analyzer and is wrapped in a Fallback to the lexical rules.
func New(cfg config.RiskConfig, analyzer SentimentAnalyzer, logger *logging.Logger) (Classifier, error) {
	lexical, err := NewLexical(rulesFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("lexical rules: %w", err)
	}

	switch Strategy(cfg.Strategy) {
	case StrategyLexical, "":
		return lexical, nil
	case StrategySentiment:
		if analyzer == nil {
			return nil, errors.New("sentiment strategy requires an analyzer")
		}
		return NewFallback(NewSentiment(analyzer), lexical, logger), nil
	}
	return nil, fmt.Errorf("unknown risk strategy %q", cfg.Strategy)
}

func rulesFromConfig(cfg config.RiskConfig) LexicalRules {
	rules := DefaultLexicalRules()
	if len(cfg.HighTerms) > 0 {
		rules.High = cfg.HighTerms
	}
	if len(cfg.ModerateTerms) > 0 {
		rules.Moderate = cfg.ModerateTerms
	}
	return rules
}
