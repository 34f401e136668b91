package risk

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

// Outcome reports the tier and the strategy that actually produced it.
type Outcome struct {
	Tier     Tier     `json:"tier"`
	Strategy Strategy `json:"strategy"`
	FellBack bool     `json:"fell_back"`
}

// Fallback classifies with primary and, when primary reports
// ErrClassificationUnavailable, with secondary for that call only.
// Other errors from primary are returned unchanged.
type Fallback struct {
	primary   Classifier
	secondary Classifier
	logger    *logging.Logger
	metrics   *Metrics
}

// NewFallback returns a Fallback. logger may be nil.
func NewFallback(primary, secondary Classifier, logger *logging.Logger) *Fallback {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		metrics:   NewMetrics(),
	}
}

// ClassifyDetailed classifies text and reports which strategy was used.
func (f *Fallback) ClassifyDetailed(ctx context.Context, text string) (Outcome, error) {
	tier, err := f.primary.Classify(ctx, text)
	if err == nil {
		f.metrics.Classifications.WithLabelValues(string(f.primary.Name()), tier.String()).Inc()
		return Outcome{Tier: tier, Strategy: f.primary.Name()}, nil
	}
	if !errors.Is(err, ErrClassificationUnavailable) {
		return Outcome{}, err
	}

	f.logger.Warn(ctx, "primary classifier unavailable, falling back",
		zap.String("primary", string(f.primary.Name())),
		zap.String("fallback", string(f.secondary.Name())),
		zap.Error(err))
	f.metrics.Fallbacks.WithLabelValues(string(f.primary.Name())).Inc()

	tier, err = f.secondary.Classify(ctx, text)
	if err != nil {
		return Outcome{}, err
	}
	f.metrics.Classifications.WithLabelValues(string(f.secondary.Name()), tier.String()).Inc()
	return Outcome{Tier: tier, Strategy: f.secondary.Name(), FellBack: true}, nil
}

// Classify implements Classifier.
func (f *Fallback) Classify(ctx context.Context, text string) (Tier, error) {
	out, err := f.ClassifyDetailed(ctx, text)
	return out.Tier, err
}

// Name implements Classifier and reports the primary strategy.
func (f *Fallback) Name() Strategy { return f.primary.Name() }

// Detailed classifies with c and reports the strategy used. Classifiers
// other than Fallback never fall back.
func Detailed(ctx context.Context, c Classifier, text string) (Outcome, error) {
	if f, ok := c.(*Fallback); ok {
		return f.ClassifyDetailed(ctx, text)
	}
	tier, err := c.Classify(ctx, text)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Tier: tier, Strategy: c.Name()}, nil
}
