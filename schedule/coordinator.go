package schedule

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/delivery"
	"github.com/jpetree331/continuum/errors"
	"github.com/jpetree331/continuum/journal"
)

// Deliverer runs the delivery fallback chain for one firing
type Deliverer interface {
	Deliver(ctx context.Context, target, prompt, directiveID string) (delivery.Result, error)
}

// Broadcaster receives firing lifecycle notifications, e.g. for pushing
// journal updates to connected UIs. Implementations must not block.
type Broadcaster interface {
	DirectiveFired(directiveID, entryID string)
	DirectiveSettled(directiveID, entryID string, status journal.Status)
}

// Coordinator owns the claim/fire lifecycle.
//
// A claim atomically checks eligibility, marks the directive in-flight,
// stamps LastFiredAt, and appends a pending journal entry, all before the
// delivery attempt begins. At most one firing per directive is in flight;
// a concurrent claim gets ErrAlreadyInFlight.
type Coordinator struct {
	store       *Store
	ledger      *journal.Ledger
	chain       Deliverer
	broadcaster Broadcaster // may be nil
	log         *zap.SugaredLogger

	// onClaim and onSettle mark persistence dirty; they must not block
	onClaim  func()
	onSettle func()

	mu       sync.Mutex
	inflight map[string]struct{}

	wg  sync.WaitGroup
	now func() time.Time
}

// NewCoordinator creates a coordinator. broadcaster may be nil.
func NewCoordinator(store *Store, ledger *journal.Ledger, chain Deliverer, broadcaster Broadcaster, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		store:       store,
		ledger:      ledger,
		chain:       chain,
		broadcaster: broadcaster,
		log:         log,
		inflight:    make(map[string]struct{}),
		now:         time.Now,
	}
}

// SetHooks installs persistence hooks: onClaim fires after a successful
// claim (directive state changed), onSettle after a journal transition.
func (c *Coordinator) SetHooks(onClaim, onSettle func()) {
	c.onClaim = onClaim
	c.onSettle = onSettle
}

// ClaimAndFire claims a directive and starts its delivery asynchronously,
// returning the pending journal entry's id.
//
// ErrAlreadyInFlight is advisory: it means another firing won the claim, and
// callers should skip, not retry.
func (c *Coordinator) ClaimAndFire(ctx context.Context, directiveID string) (string, error) {
	d, ok := c.store.Get(directiveID)
	if !ok {
		return "", errors.Wrapf(errors.ErrDirectiveNotFound, "directive %s", directiveID)
	}
	if !d.Enabled {
		return "", errors.Wrapf(errors.ErrDirectiveDisabled, "directive %s", directiveID)
	}

	c.mu.Lock()
	if _, busy := c.inflight[directiveID]; busy {
		c.mu.Unlock()
		return "", errors.Wrapf(errors.ErrAlreadyInFlight, "directive %s", directiveID)
	}
	c.inflight[directiveID] = struct{}{}
	c.mu.Unlock()

	now := c.now()
	if err := c.store.stampLastFired(directiveID, now); err != nil {
		c.release(directiveID)
		return "", err
	}

	entry := journal.NewPending(directiveID, d.Prompt, now)
	if err := c.ledger.Append(entry); err != nil {
		c.release(directiveID)
		return "", err
	}

	if c.onClaim != nil {
		c.onClaim()
	}
	if c.broadcaster != nil {
		c.broadcaster.DirectiveFired(directiveID, entry.ID)
	}

	c.log.Infow("Directive claimed",
		"directive_id", directiveID,
		"name", d.Name,
		"entry_id", entry.ID,
		"target", d.Target)

	c.wg.Add(1)
	go c.runDelivery(ctx, d, entry.ID)

	return entry.ID, nil
}

// FireNow is the manual trigger. It takes the identical claim path as a
// scheduler firing, so the same concurrency guarantees apply.
func (c *Coordinator) FireNow(ctx context.Context, directiveID string) (string, error) {
	return c.ClaimAndFire(ctx, directiveID)
}

// InFlight reports whether a firing of the directive is currently in flight
func (c *Coordinator) InFlight(directiveID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[directiveID]
	return busy
}

// Wait blocks until all in-flight deliveries settle
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) runDelivery(ctx context.Context, d Directive, entryID string) {
	defer c.wg.Done()
	// The claim must be released on every exit path, including a panic in a
	// delivery tier, or the directive would be stuck unfirable.
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("Panic during delivery",
				"directive_id", d.ID,
				"entry_id", entryID,
				"panic", r,
				"stack", string(debug.Stack()))
			c.settle(d.ID, entryID, journal.Failed(fmt.Sprintf("delivery panic: %v", r)))
		}
		c.release(d.ID)
	}()

	res, err := c.chain.Deliver(ctx, d.Target, d.Prompt, d.ID)
	if err != nil {
		c.log.Warnw("Delivery failed",
			"directive_id", d.ID,
			"entry_id", entryID,
			"error", err)
		c.settle(d.ID, entryID, journal.Failed(err.Error()))
		return
	}

	c.log.Infow("Delivery succeeded",
		"directive_id", d.ID,
		"entry_id", entryID,
		"tier", res.Tier,
		"archived", res.Archived)
	c.settle(d.ID, entryID, journal.Succeeded(res.Text, res.Archived))
}

func (c *Coordinator) settle(directiveID, entryID string, outcome journal.Outcome) {
	if err := c.ledger.Transition(entryID, outcome); err != nil {
		c.log.Errorw("Failed to settle journal entry",
			"entry_id", entryID,
			"error", err)
		return
	}
	if c.onSettle != nil {
		c.onSettle()
	}
	if c.broadcaster != nil {
		c.broadcaster.DirectiveSettled(directiveID, entryID, outcome.Status)
	}
}

func (c *Coordinator) release(directiveID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, directiveID)
}
