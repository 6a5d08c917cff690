package journal

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/errors"
)

// Outcome is the terminal result applied to a pending entry
type Outcome struct {
	Status   Status
	Response string
	Archived bool
}

// Succeeded builds a Success outcome carrying the delivered response text
func Succeeded(response string, archived bool) Outcome {
	return Outcome{Status: StatusSuccess, Response: response, Archived: archived}
}

// Failed builds a Failed outcome carrying a human-readable cause
func Failed(cause string) Outcome {
	return Outcome{Status: StatusFailed, Response: cause}
}

// Filter selects entries for Query
type Filter struct {
	DirectiveID string    // empty = all directives
	From        time.Time // zero = unbounded
	To          time.Time // zero = unbounded
	Skip        int
	Limit       int // 0 = no limit
}

// Ledger is the append-only, newest-first log of firing attempts.
//
// The ledger is the only component allowed to create or transition entries.
// Entries are never deleted here; retention is the persistence layer's
// concern.
type Ledger struct {
	mu      sync.RWMutex
	entries []*Entry // newest first
	byID    map[string]*Entry
	log     *zap.SugaredLogger
}

// NewLedger creates an empty ledger
func NewLedger(log *zap.SugaredLogger) *Ledger {
	return &Ledger{
		byID: make(map[string]*Entry),
		log:  log,
	}
}

// Append prepends a new entry to the ledger.
// Equal-timestamp entries keep insertion order: the later append is the
// more recent one.
func (l *Ledger) Append(e *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		return errors.New("journal entry missing id")
	}
	if _, ok := l.byID[e.ID]; ok {
		return errors.Newf("journal entry %s already exists", e.ID)
	}

	stored := *e
	l.entries = append([]*Entry{&stored}, l.entries...)
	l.byID[stored.ID] = &stored

	l.log.Debugw("Journal entry appended",
		"entry_id", stored.ID,
		"directive_id", stored.DirectiveID,
		"status", stored.Status)
	return nil
}

// Transition moves a pending entry to a terminal status.
// A settled entry is immutable: a second transition is rejected.
func (l *Ledger) Transition(id string, outcome Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byID[id]
	if !ok {
		return errors.Wrapf(errors.ErrEntryNotFound, "entry %s", id)
	}
	if e.Status.Terminal() {
		return errors.Wrapf(errors.ErrEntrySettled, "entry %s is %s", id, e.Status)
	}
	if !outcome.Status.Terminal() {
		return errors.Newf("transition to non-terminal status %q", outcome.Status)
	}

	e.Status = outcome.Status
	e.Response = outcome.Response
	e.Archived = outcome.Archived

	l.log.Debugw("Journal entry settled",
		"entry_id", e.ID,
		"directive_id", e.DirectiveID,
		"status", e.Status,
		"archived", e.Archived)
	return nil
}

// Get returns a copy of the entry with the given id
func (l *Ledger) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Query returns matching entries newest-first, honoring Skip/Limit, and
// reports whether more matches remain past the returned page.
func (l *Ledger) Query(f Filter) ([]Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Entry
	for _, e := range l.entries {
		if f.DirectiveID != "" && e.DirectiveID != f.DirectiveID {
			continue
		}
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.CreatedAt.After(f.To) {
			continue
		}
		matched = append(matched, *e)
	}

	if f.Skip > 0 {
		if f.Skip >= len(matched) {
			return nil, false
		}
		matched = matched[f.Skip:]
	}

	hasMore := false
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
		hasMore = true
	}

	return matched, hasMore
}

// Snapshot returns a copy of all entries, newest first.
// Used by the persistence layer when saving the journal.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// Restore replaces the ledger contents with previously persisted entries.
// Entries are expected newest-first, as produced by Snapshot.
//
// An entry persisted while still pending belongs to a delivery that died
// with the previous process; it is settled as Failed here so nothing stays
// pending forever.
func (l *Ledger) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]*Entry, 0, len(entries))
	l.byID = make(map[string]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		if !e.Status.Terminal() {
			e.Status = StatusFailed
			e.Response = "delivery interrupted by restart"
			l.log.Warnw("Settled stale pending entry on restore",
				"entry_id", e.ID,
				"directive_id", e.DirectiveID)
		}
		l.entries = append(l.entries, &e)
		l.byID[e.ID] = &e
	}
}
