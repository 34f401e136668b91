package scheduling

import (
	"time"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/risk"
)

// Status is the lifecycle state of a follow-up event.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Request asks for a follow-up for one conversation.
type Request struct {
	ConversationID string `json:"conversation_id"`
	// Key overrides the idempotency key. When both Key and ConversationID
	// are empty the key is the content hash of Text.
	Key         string    `json:"key,omitempty"`
	Text        string    `json:"-"`
	Tier        risk.Tier `json:"tier"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IdempotencyKey returns the ledger key for the request.
func (r Request) IdempotencyKey() string {
	switch {
	case r.Key != "":
		return r.Key
	case r.ConversationID != "":
		return r.ConversationID
	}
	return corpus.ContentID(r.Text)
}

// Event is a booked follow-up.
type Event struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversation_id,omitempty"`
	IdempotencyKey  string    `json:"idempotency_key"`
	Tier            risk.Tier `json:"tier"`
	Summary         string    `json:"summary"`
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Status          Status    `json:"status"`
	CalendarEventID string    `json:"calendar_event_id"`
	HTMLLink        string    `json:"html_link,omitempty"`
	Attempts        int       `json:"attempts"`
	CreatedAt       time.Time `json:"created_at"`
	CancelledAt     time.Time `json:"cancelled_at,omitzero"`
}

// Active reports whether the event has not been cancelled.
func (e *Event) Active() bool {
	return e.Status != StatusCancelled
}

func (e *Event) clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
