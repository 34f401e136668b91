// Package corpus reads doctor-patient conversation transcripts and keeps the
// current batch in memory.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

var (
	// ErrMissingColumn is returned when the CSV header lacks the text column.
	ErrMissingColumn = errors.New("missing column")
	// ErrEmptyInput is returned when the CSV has no header row.
	ErrEmptyInput = errors.New("empty corpus input")
)

// Conversation is one transcript. It is never modified after it is read.
type Conversation struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Key returns the idempotency key for the conversation: its ID, or the
// content hash when the ID is empty.
func (c Conversation) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return ContentID(c.Text)
}

// ContentID returns the hex sha256 of text.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// RowID is the positional ID used when the corpus has no id column.
func RowID(index int) string {
	return "row-" + strconv.Itoa(index)
}
