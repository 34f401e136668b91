// Package risk assigns an ordinal risk tier to a conversation.
//
// Two strategies share the Classifier contract: Lexical checks high-risk
// terms before moderate-risk terms, Sentiment maps the label of an external
// sentiment model to a tier. The caller picks one explicitly; Fallback wraps
// Sentiment so an unavailable model degrades to Lexical for that call.
package risk

import (
	"fmt"
	"strings"
)

// Tier is an ordinal risk level. Low < Moderate < High; the zero value is
// not a valid tier.
type Tier int

const (
	TierUnknown Tier = iota
	TierLow
	TierModerate
	TierHigh
)

// Tiers lists the valid tiers in ascending order.
var Tiers = []Tier{TierLow, TierModerate, TierHigh}

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierModerate:
		return "Moderate"
	case TierHigh:
		return "High"
	}
	return "Unknown"
}

// Valid reports whether t is Low, Moderate or High.
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TierLow, nil
	case "moderate":
		return TierModerate, nil
	case "high":
		return TierHigh, nil
	}
	return TierUnknown, fmt.Errorf("invalid risk tier %q", s)
}

// MarshalText encodes the tier name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
