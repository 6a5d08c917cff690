// Package persist stores Continuum state across restarts. Two strategies
// exist: a local SQLite record store and a remote strategy that keeps the
// directive set and settings on the relay bridge. The strategy is chosen
// once at startup and never switched mid-run.
package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

// Memory is a small key/value fact included in delivery context blocks
type Memory struct {
	ID           string
	Key          string
	Value        string
	Importance   int
	LastAccessed time.Time
}

// NewMemory creates a memory with a fresh id
func NewMemory(key, value string, importance int, now time.Time) Memory {
	return Memory{
		ID:           uuid.NewString(),
		Key:          key,
		Value:        value,
		Importance:   importance,
		LastAccessed: now,
	}
}

type memoryJSON struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	Value          string `json:"value"`
	Importance     int    `json:"importance"`
	LastAccessedMS int64  `json:"lastAccessed"`
}

// MarshalJSON implements json.Marshaler
func (m Memory) MarshalJSON() ([]byte, error) {
	return json.Marshal(memoryJSON{
		ID:             m.ID,
		Key:            m.Key,
		Value:          m.Value,
		Importance:     m.Importance,
		LastAccessedMS: m.LastAccessed.UnixMilli(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Memory) UnmarshalJSON(data []byte) error {
	var w memoryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ID = w.ID
	m.Key = w.Key
	m.Value = w.Value
	m.Importance = w.Importance
	m.LastAccessed = time.UnixMilli(w.LastAccessedMS)
	return nil
}

// State is everything a strategy loads at startup
type State struct {
	Directives []schedule.Directive
	Settings   config.Settings
	Memories   []Memory
	Journal    []journal.Entry
}

// Strategy persists Continuum state. Save methods replace whole collections;
// partial writes are not part of the contract.
type Strategy interface {
	Name() string
	Load(ctx context.Context) (*State, error)
	SaveDirectives(ctx context.Context, directives []schedule.Directive) error
	SaveSettings(ctx context.Context, settings config.Settings) error
	SaveMemories(ctx context.Context, memories []Memory) error
	SaveJournal(ctx context.Context, entries []journal.Entry) error
}
