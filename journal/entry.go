// Package journal maintains the append-only ledger of directive firings.
package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a journal entry
type Status string

// Entry status constants.
// An entry is created Pending and makes exactly one transition to a terminal
// status (Success or Failed), after which it is immutable.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether s is a terminal status
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Entry records one firing attempt of a directive.
//
// Prompt is a snapshot taken at claim time, so later edits to the directive
// never rewrite history. Response holds the delivered text on success, a
// human-readable cause on failure, and a transit placeholder while pending.
type Entry struct {
	ID          string
	CreatedAt   time.Time
	DirectiveID string
	Prompt      string
	Response    string
	Status      Status

	// Archived is true when the firing was durably stored by the relay
	// (a primary-tier success). Fallback successes are not archived.
	Archived bool
}

// PendingResponse is the placeholder response text while delivery is in flight
const PendingResponse = "Transmitting..."

// NewPending creates a Pending entry for a firing of the given directive
func NewPending(directiveID, prompt string, now time.Time) *Entry {
	return &Entry{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		DirectiveID: directiveID,
		Prompt:      prompt,
		Response:    PendingResponse,
		Status:      StatusPending,
	}
}

// entryJSON is the wire shape of an entry. Timestamps travel as epoch
// milliseconds to stay interchangeable with the relay archive.
type entryJSON struct {
	ID          string `json:"id"`
	TimestampMS int64  `json:"timestamp"`
	DirectiveID string `json:"scheduleId"`
	Prompt      string `json:"prompt"`
	Response    string `json:"response"`
	Status      Status `json:"status"`
	Archived    bool   `json:"archived,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:          e.ID,
		TimestampMS: e.CreatedAt.UnixMilli(),
		DirectiveID: e.DirectiveID,
		Prompt:      e.Prompt,
		Response:    e.Response,
		Status:      e.Status,
		Archived:    e.Archived,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.CreatedAt = time.UnixMilli(w.TimestampMS)
	e.DirectiveID = w.DirectiveID
	e.Prompt = w.Prompt
	e.Response = w.Response
	e.Status = w.Status
	e.Archived = w.Archived
	return nil
}
