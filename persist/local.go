package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

// Record names in the continuum_records table
const (
	recordSchedules = "schedules"
	recordJournal   = "journal"
	recordMemories  = "memories"
	recordSettings  = "settings"
)

// Local persists state as named JSON records in the local SQLite database
type Local struct {
	db        *sql.DB
	retention int // max journal entries kept on save, 0 = unbounded
	log       *zap.SugaredLogger
}

// NewLocal creates a local strategy over an opened, migrated database
func NewLocal(db *sql.DB, retention int, log *zap.SugaredLogger) *Local {
	return &Local{db: db, retention: retention, log: log}
}

// Name implements Strategy
func (l *Local) Name() string { return "local" }

// Load reads all records. Missing records yield empty collections, not
// errors: a fresh database is a valid empty state.
func (l *Local) Load(ctx context.Context) (*State, error) {
	state := &State{}

	if err := l.readRecord(ctx, recordSchedules, &state.Directives); err != nil {
		return nil, err
	}
	if err := l.readRecord(ctx, recordJournal, &state.Journal); err != nil {
		return nil, err
	}
	if err := l.readRecord(ctx, recordMemories, &state.Memories); err != nil {
		return nil, err
	}
	if err := l.readRecord(ctx, recordSettings, &state.Settings); err != nil {
		return nil, err
	}

	l.log.Infow("Loaded local state",
		"directives", len(state.Directives),
		"journal_entries", len(state.Journal),
		"memories", len(state.Memories))
	return state, nil
}

// SaveDirectives implements Strategy
func (l *Local) SaveDirectives(ctx context.Context, directives []schedule.Directive) error {
	return l.writeRecord(ctx, recordSchedules, directives)
}

// SaveSettings implements Strategy
func (l *Local) SaveSettings(ctx context.Context, settings config.Settings) error {
	return l.writeRecord(ctx, recordSettings, settings)
}

// SaveMemories implements Strategy
func (l *Local) SaveMemories(ctx context.Context, memories []Memory) error {
	return l.writeRecord(ctx, recordMemories, memories)
}

// SaveJournal persists the journal, truncated to the retention bound.
// Entries arrive newest-first, so truncation drops the oldest.
func (l *Local) SaveJournal(ctx context.Context, entries []journal.Entry) error {
	if l.retention > 0 && len(entries) > l.retention {
		entries = entries[:l.retention]
	}
	return l.writeRecord(ctx, recordJournal, entries)
}

func (l *Local) readRecord(ctx context.Context, name string, out interface{}) error {
	var value string
	err := l.db.QueryRowContext(ctx,
		"SELECT value FROM continuum_records WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading record %q", name)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return errors.Wrapf(err, "decoding record %q", name)
	}
	return nil
}

func (l *Local) writeRecord(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding record %q", name)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO continuum_records (name, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrapf(errors.ErrPersistenceWrite, "record %q: %v", name, err)
	}
	return nil
}
