// Package delivery orchestrates the ordered fallback chain across agent
// backends. It owns no backend logic: tiers are injected as interfaces and
// tried in strict order, first success wins.
package delivery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/errors"
)

// Tier identifies which backend produced a delivery result
type Tier string

// Delivery tiers, in fallback order
const (
	TierRelay      Tier = "relay"
	TierAgent      Tier = "agent"
	TierSimulation Tier = "simulation"
)

// SimulateTarget is the sentinel target meaning "respond locally, no backend"
const SimulateTarget = "simulation"

// SimulatedTarget reports whether a directive target routes to the simulated
// responder instead of a real conversation.
func SimulatedTarget(target string) bool {
	return target == "" || target == SimulateTarget || target == "general"
}

// Result is a successful delivery.
//
// Archived distinguishes a relay success (durably stored on the relay side)
// from a fallback success (delivered, but not archived anywhere).
type Result struct {
	Text     string
	Tier     Tier
	Archived bool
}

// Relay is the primary delivery tier: the bridge server that archives
// successful deliveries.
type Relay interface {
	Trigger(ctx context.Context, target, prompt, directiveID string) (string, error)
}

// Agent is the direct chat-channel tier
type Agent interface {
	PostMessage(ctx context.Context, target, prompt, contextBlock string) (string, error)
}

// ContextFunc synthesizes the system-context block sent alongside a prompt
// on the direct agent tier (current time plus flattened memories).
type ContextFunc func(now time.Time) string

// ChainConfig configures chain behavior
type ChainConfig struct {
	Timeout           time.Duration // per-tier attempt bound
	SimulationEnabled bool
	SimulationDelay   time.Duration
}

// Chain tries each configured tier in order: relay, then direct agent
// channel, then the simulated responder.
type Chain struct {
	relay     Relay // nil when no relay configured
	agent     Agent // nil when no direct channel configured
	simulator *Simulator
	contextFn ContextFunc
	timeout   time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

// NewChain creates a delivery chain. relay and agent may be nil when the
// corresponding backend is not configured.
func NewChain(relay Relay, agent Agent, contextFn ContextFunc, cfg ChainConfig, log *zap.SugaredLogger) *Chain {
	var sim *Simulator
	if cfg.SimulationEnabled {
		sim = NewSimulator(cfg.SimulationDelay)
	}
	if contextFn == nil {
		contextFn = func(now time.Time) string { return "" }
	}
	return &Chain{
		relay:     relay,
		agent:     agent,
		simulator: sim,
		contextFn: contextFn,
		timeout:   cfg.Timeout,
		now:       time.Now,
		log:       log,
	}
}

// Deliver runs the fallback chain for one firing.
//
// Tier rules:
//   - Relay failure is never terminal; it falls through.
//   - Agent failure IS terminal: it surfaces as a delivery failure, never as
//     a success-shaped response with embedded error text.
//   - Simulation applies for the simulate sentinel or a fully unconfigured
//     chain, and always succeeds.
func (c *Chain) Deliver(ctx context.Context, target, prompt, directiveID string) (Result, error) {
	var relayErr error

	if c.relay != nil {
		text, err := c.withTimeout(ctx, func(tctx context.Context) (string, error) {
			return c.relay.Trigger(tctx, target, prompt, directiveID)
		})
		if err == nil {
			return Result{Text: text, Tier: TierRelay, Archived: true}, nil
		}
		relayErr = err
		c.log.Warnw("Relay delivery failed, falling through",
			"directive_id", directiveID,
			"target", target,
			"error", err)
	}

	if c.agent != nil && !SimulatedTarget(target) {
		contextBlock := c.contextFn(c.now())
		text, err := c.withTimeout(ctx, func(tctx context.Context) (string, error) {
			return c.agent.PostMessage(tctx, target, prompt, contextBlock)
		})
		if err != nil {
			return Result{}, errors.Wrap(err, "direct agent delivery failed")
		}
		return Result{Text: text, Tier: TierAgent, Archived: false}, nil
	}

	if c.simulator != nil && (SimulatedTarget(target) || (c.relay == nil && c.agent == nil)) {
		text, err := c.simulator.Respond(ctx, prompt)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text, Tier: TierSimulation, Archived: false}, nil
	}

	if relayErr != nil {
		return Result{}, errors.WrapBackendUnavailable(relayErr, "all delivery tiers exhausted")
	}
	return Result{}, errors.WithStack(errors.ErrNoBackendConfigured)
}

func (c *Chain) withTimeout(ctx context.Context, attempt func(context.Context) (string, error)) (string, error) {
	if c.timeout <= 0 {
		return attempt(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return attempt(tctx)
}
