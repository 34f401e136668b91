package risk

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

type stubAnalyzer struct {
	label string
	err   error
	calls int
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.label, s.err
}

func TestTier_Ordering(t *testing.T) {
	assert.Less(t, TierLow, TierModerate)
	assert.Less(t, TierModerate, TierHigh)
	assert.False(t, TierUnknown.Valid())
	assert.Equal(t, []Tier{TierLow, TierModerate, TierHigh}, Tiers)
}

func TestTier_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Tier{"tier": TierModerate})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"Moderate"}`, string(data))

	var decoded struct {
		Tier Tier `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"high"}`), &decoded))
	assert.Equal(t, TierHigh, decoded.Tier)

	assert.Error(t, json.Unmarshal([]byte(`{"tier":"severe"}`), &decoded))
}

func TestLexical_Precedence(t *testing.T) {
	l := NewDefaultLexical()

	tests := []struct {
		text string
		want Tier
	}{
		{"fever and dyspnea present", TierHigh},
		{"Patient reports DIFFICULTY BREATHING", TierHigh},
		{"diagnosed with ARDS and covid-19", TierHigh},
		{"mild fever only", TierModerate},
		{"Fatigue for a week", TierModerate},
		{"tested positive for COVID-19", TierModerate},
		{"routine checkup, headache", TierLow},
		{"", TierLow},
		{"feverish but fine", TierLow},
	}
	for _, tt := range tests {
		got, err := l.Classify(context.Background(), tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.text)
	}
	assert.Equal(t, StrategyLexical, l.Name())
}

func TestTierFromLabel(t *testing.T) {
	tests := map[string]Tier{
		"NEGATIVE":      TierHigh,
		"very negative": TierHigh,
		"neutral":       TierModerate,
		"POSITIVE":      TierLow,
		"LABEL_1":       TierLow,
		"":              TierLow,
	}
	for label, want := range tests {
		assert.Equal(t, want, TierFromLabel(label), label)
	}
}

func TestSentiment_Classify(t *testing.T) {
	a := &stubAnalyzer{label: "NEGATIVE"}
	s := NewSentiment(a)

	tier, err := s.Classify(context.Background(), "I can't breathe")
	require.NoError(t, err)
	assert.Equal(t, TierHigh, tier)
	assert.Equal(t, StrategySentiment, s.Name())
}

func TestSentiment_Unavailable(t *testing.T) {
	backendErr := errors.New("connection refused")
	a := &stubAnalyzer{err: backendErr}
	s := NewSentiment(a)

	_, err := s.Classify(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrClassificationUnavailable)
	assert.ErrorIs(t, err, backendErr)

	_, err = s.Classify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrClassificationUnavailable)
	assert.Equal(t, 1, a.calls, "empty text never reaches the backend")
}

func TestFallback_UsesPrimaryWhenAvailable(t *testing.T) {
	f := NewFallback(NewSentiment(&stubAnalyzer{label: "neutral"}), NewDefaultLexical(), nil)

	out, err := f.ClassifyDetailed(context.Background(), "dyspnea")
	require.NoError(t, err)
	assert.Equal(t, Outcome{Tier: TierModerate, Strategy: StrategySentiment}, out)
}

func TestFallback_FallsBackToLexical(t *testing.T) {
	tl := logging.NewTestLogger()
	f := NewFallback(NewSentiment(&stubAnalyzer{err: errors.New("503")}), NewDefaultLexical(), tl.Logger)

	out, err := f.ClassifyDetailed(context.Background(), "fever and dyspnea present")
	require.NoError(t, err)
	assert.Equal(t, Outcome{Tier: TierHigh, Strategy: StrategyLexical, FellBack: true}, out)
	tl.AssertLogged(t, zapcore.WarnLevel, "falling back")
	tl.AssertField(t, "falling back", "fallback", "lexical")

	tier, err := f.Classify(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, TierLow, tier)
	assert.Equal(t, StrategySentiment, f.Name())
}

type failingClassifier struct{ err error }

func (f failingClassifier) Classify(context.Context, string) (Tier, error) { return TierUnknown, f.err }
func (f failingClassifier) Name() Strategy { return "broken" }

func TestFallback_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	f := NewFallback(failingClassifier{err: boom}, NewDefaultLexical(), nil)

	_, err := f.Classify(context.Background(), "fever")
	assert.ErrorIs(t, err, boom)
}

func TestDetailed(t *testing.T) {
	out, err := Detailed(context.Background(), NewDefaultLexical(), "fatigue")
	require.NoError(t, err)
	assert.Equal(t, Outcome{Tier: TierModerate, Strategy: StrategyLexical}, out)

	f := NewFallback(NewSentiment(&stubAnalyzer{err: errors.New("down")}), NewDefaultLexical(), nil)
	out, err = Detailed(context.Background(), f, "fatigue")
	require.NoError(t, err)
	assert.True(t, out.FellBack)
}

func TestNew(t *testing.T) {
	c, err := New(config.RiskConfig{Strategy: config.StrategyLexical}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyLexical, c.Name())

	c, err = New(config.RiskConfig{Strategy: config.StrategySentiment}, &stubAnalyzer{label: "positive"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Fallback{}, c)
	assert.Equal(t, StrategySentiment, c.Name())

	_, err = New(config.RiskConfig{Strategy: config.StrategySentiment}, nil, nil)
	assert.Error(t, err)

	_, err = New(config.RiskConfig{Strategy: "oracle"}, nil, nil)
	assert.Error(t, err)
}

func TestNew_CustomTerms(t *testing.T) {
	c, err := New(config.RiskConfig{
		Strategy:      config.StrategyLexical,
		HighTerms:     []string{"sepsis"},
		ModerateTerms: []string{"cough"},
	}, nil, nil)
	require.NoError(t, err)

	tier, _ := c.Classify(context.Background(), "signs of sepsis")
	assert.Equal(t, TierHigh, tier)
	tier, _ = c.Classify(context.Background(), "dyspnea and a cough")
	assert.Equal(t, TierModerate, tier, "default high terms are replaced")
}
