package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

// Sources provides current snapshots of the collections the saver persists.
// Each func must be safe to call from the saver goroutine.
type Sources struct {
	Directives func() []schedule.Directive
	Journal    func() []journal.Entry
	Memories   func() []Memory
	Settings   func() config.Settings
}

// Saver writes dirty collections through the strategy in the background.
//
// Mark calls never block and never perform I/O: claims happen on the hot
// path of the scheduler loop. Writes are rate limited so a fast interval
// directive cannot hammer the backend; a failed write stays dirty and is
// retried on the next cycle.
type Saver struct {
	strategy Strategy
	sources  Sources
	limiter  *rate.Limiter
	log      *zap.SugaredLogger

	mu    sync.Mutex
	dirty map[string]bool

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dirty collection keys
const (
	dirtyDirectives = "directives"
	dirtyJournal    = "journal"
	dirtyMemories   = "memories"
	dirtySettings   = "settings"
)

// NewSaver creates a saver that writes at most one batch per interval
func NewSaver(strategy Strategy, sources Sources, interval time.Duration, log *zap.SugaredLogger) *Saver {
	if interval <= 0 {
		interval = time.Second
	}
	return &Saver{
		strategy: strategy,
		sources:  sources,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		log:      log,
		dirty:    make(map[string]bool),
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the background writer
func (s *Saver) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop halts the writer and flushes pending writes. The flush happens even
// when the writer goroutine never ran: dirty state marked before Start (or
// without it) must still reach the backend.
func (s *Saver) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	// Final flush without rate limiting so shutdown never loses state
	s.flush(context.Background())
}

// MarkDirectivesDirty flags the directive set for persistence
func (s *Saver) MarkDirectivesDirty() { s.mark(dirtyDirectives) }

// MarkJournalDirty flags the journal for persistence
func (s *Saver) MarkJournalDirty() { s.mark(dirtyJournal) }

// MarkMemoriesDirty flags the memory set for persistence
func (s *Saver) MarkMemoriesDirty() { s.mark(dirtyMemories) }

// MarkSettingsDirty flags the settings for persistence
func (s *Saver) MarkSettingsDirty() { s.mark(dirtySettings) }

func (s *Saver) mark(key string) {
	s.mu.Lock()
	s.dirty[key] = true
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Saver) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
		}

		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
		s.flush(s.ctx)
	}
}

func (s *Saver) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.dirty
	s.dirty = make(map[string]bool)
	s.mu.Unlock()

	for key := range batch {
		var err error
		switch key {
		case dirtyDirectives:
			err = s.strategy.SaveDirectives(ctx, s.sources.Directives())
		case dirtyJournal:
			err = s.strategy.SaveJournal(ctx, s.sources.Journal())
		case dirtyMemories:
			err = s.strategy.SaveMemories(ctx, s.sources.Memories())
		case dirtySettings:
			err = s.strategy.SaveSettings(ctx, s.sources.Settings())
		}
		if err != nil {
			s.log.Warnw("Persistence write failed, will retry",
				"collection", key,
				"strategy", s.strategy.Name(),
				"error", err)
			s.mark(key)
		}
	}
}
