package scheduling

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"strconv"
	"strings"
	"time"
)

// Booking is what the backend needs to create one calendar event.
type Booking struct {
	// EventID is derived from the idempotency key so repeated inserts of the
	// same booking collide instead of duplicating.
	EventID     string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Reminders   []Reminder
}

// Confirmation is the backend's record of a booked event.
type Confirmation struct {
	ID       string
	HTMLLink string
	Status   string
}

// Booker creates and deletes calendar events. Implementations return *Error
// values so the Service can decide whether to retry.
type Booker interface {
	Insert(ctx context.Context, b Booking) (Confirmation, error)
	Delete(ctx context.Context, eventID string) error
}

var eventIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// EventID returns the calendar event ID for the generation-th booking of key.
// The alphabet (0-9, a-v) is what Google Calendar accepts for client IDs.
func EventID(key string, generation int) string {
	input := key
	if generation > 0 {
		input += "#" + strconv.Itoa(generation)
	}
	sum := sha256.Sum256([]byte(input))
	return strings.ToLower(eventIDEncoding.EncodeToString(sum[:]))
}
