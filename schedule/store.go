package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/errors"
)

// Store is the authoritative in-memory collection of directives.
//
// All reads hand out copies; mutation happens only through Store methods so
// claim checks and LastFiredAt stamps are serialized under one lock.
type Store struct {
	mu         sync.RWMutex
	directives []*Directive // insertion order
	byID       map[string]*Directive
	log        *zap.SugaredLogger
}

// NewStore creates an empty store
func NewStore(log *zap.SugaredLogger) *Store {
	return &Store{
		byID: make(map[string]*Directive),
		log:  log,
	}
}

// Add inserts a new directive. A malformed interval spec is accepted but
// logged as a warning; such a directive never fires.
func (s *Store) Add(d *Directive) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := d.CheckSpec(); err != nil {
		s.log.Warnw("Directive has a malformed interval spec and will never fire",
			"directive_id", d.ID,
			"name", d.Name,
			"interval", d.Every,
			"error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[d.ID]; ok {
		return errors.Newf("directive %s already exists", d.ID)
	}
	stored := d.clone()
	s.directives = append(s.directives, stored)
	s.byID[stored.ID] = stored

	s.log.Infow("Directive added",
		"directive_id", stored.ID,
		"name", stored.Name,
		"mode", stored.Mode)
	return nil
}

// Get returns a copy of the directive with the given id
func (s *Store) Get(id string) (Directive, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return Directive{}, false
	}
	return *d.clone(), true
}

// List returns copies of all directives in insertion order
func (s *Store) List() []*Directive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Directive, len(s.directives))
	for i, d := range s.directives {
		out[i] = d.clone()
	}
	return out
}

// Len returns the number of directives
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.directives)
}

// Update replaces the definition of an existing directive. LastFiredAt is
// preserved from the stored directive: edits never rewrite firing history.
func (s *Store) Update(d *Directive) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := d.CheckSpec(); err != nil {
		s.log.Warnw("Directive has a malformed interval spec and will never fire",
			"directive_id", d.ID,
			"interval", d.Every,
			"error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[d.ID]
	if !ok {
		return errors.Wrapf(errors.ErrDirectiveNotFound, "directive %s", d.ID)
	}
	updated := d.clone()
	updated.LastFiredAt = current.LastFiredAt
	*current = *updated
	return nil
}

// Delete removes a directive
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return errors.Wrapf(errors.ErrDirectiveNotFound, "directive %s", id)
	}
	delete(s.byID, id)
	for i, d := range s.directives {
		if d.ID == id {
			s.directives = append(s.directives[:i], s.directives[i+1:]...)
			break
		}
	}
	s.log.Infow("Directive deleted", "directive_id", id)
	return nil
}

// SetEnabled toggles a directive. Disabling does not cancel an in-flight
// delivery; it only prevents future claims.
func (s *Store) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return errors.Wrapf(errors.ErrDirectiveNotFound, "directive %s", id)
	}
	d.Enabled = enabled
	return nil
}

// stampLastFired records a firing instant. Only the coordinator's claim path
// calls this; nothing else may advance LastFiredAt.
func (s *Store) stampLastFired(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return errors.Wrapf(errors.ErrDirectiveNotFound, "directive %s", id)
	}
	d.LastFiredAt = at
	return nil
}

// Snapshot returns copies of all directives for persistence
func (s *Store) Snapshot() []Directive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Directive, len(s.directives))
	for i, d := range s.directives {
		out[i] = *d.clone()
	}
	return out
}

// Restore replaces the store contents with previously persisted directives.
// Invalid directives are skipped with a warning rather than failing the load.
func (s *Store) Restore(directives []Directive) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.directives = make([]*Directive, 0, len(directives))
	s.byID = make(map[string]*Directive, len(directives))
	for i := range directives {
		d := directives[i]
		if err := d.Validate(); err != nil {
			s.log.Warnw("Skipping invalid persisted directive", "error", err)
			continue
		}
		stored := d.clone()
		s.directives = append(s.directives, stored)
		s.byID[stored.ID] = stored
	}
}
