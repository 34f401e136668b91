package scheduling

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
)

// Reminder is a calendar notification before the event starts.
type Reminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// Policy decides when a follow-up happens and how the attendee is reminded.
type Policy struct {
	Offsets   map[risk.Tier]time.Duration
	Duration  time.Duration
	TimeZone  string
	Reminders []Reminder
}

// DefaultPolicy books High risk within a day, Moderate within three days and
// Low within a week, for one hour, with an email a day ahead and a popup ten
// minutes ahead.
func DefaultPolicy() Policy {
	return Policy{
		Offsets: map[risk.Tier]time.Duration{
			risk.TierHigh:     24 * time.Hour,
			risk.TierModerate: 72 * time.Hour,
			risk.TierLow:      168 * time.Hour,
		},
		Duration: time.Hour,
		TimeZone: "UTC",
		Reminders: []Reminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 10},
		},
	}
}

// Window returns the start and end of the follow-up for tier, in UTC.
func (p Policy) Window(now time.Time, tier risk.Tier) (time.Time, time.Time, error) {
	offset, ok := p.Offsets[tier]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("no follow-up offset for tier %s", tier)
	}
	start := now.UTC().Add(offset)
	return start, start.Add(p.Duration), nil
}

// DefaultSummary is the event title used when a request carries none.
func DefaultSummary(tier risk.Tier) string {
	return fmt.Sprintf("Follow-up Meeting for %s-Risk Patient", tier)
}
