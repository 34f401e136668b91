package risk

import (
	"context"
	"fmt"
	"strings"
)

// SentimentAnalyzer returns the sentiment label of text, for example
// "NEGATIVE" or "neutral".
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Sentiment classifies by the label of an external sentiment model.
type Sentiment struct {
	analyzer SentimentAnalyzer
}

// NewSentiment wraps analyzer.
func NewSentiment(analyzer SentimentAnalyzer) *Sentiment {
	return &Sentiment{analyzer: analyzer}
}

// Classify implements Classifier. Failures wrap ErrClassificationUnavailable.
func (s *Sentiment) Classify(ctx context.Context, text string) (Tier, error) {
	if strings.TrimSpace(text) == "" {
		return TierUnknown, fmt.Errorf("%w: empty text", ErrClassificationUnavailable)
	}
	label, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return TierUnknown, fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
	}
	return TierFromLabel(label), nil
}

// Name implements Classifier.
func (s *Sentiment) Name() Strategy { return StrategySentiment }

// TierFromLabel maps a label containing "negative" to High, "neutral" to
// Moderate and anything else to Low.
func TierFromLabel(label string) Tier {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "negative"):
		return TierHigh
	case strings.Contains(l, "neutral"):
		return TierModerate
	}
	return TierLow
}
