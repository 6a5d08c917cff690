package delivery

import (
	"context"
	"fmt"
	"time"
)

// DefaultSimulationDelay approximates a real backend's latency so the
// pending state is observable in the journal.
const DefaultSimulationDelay = 1500 * time.Millisecond

// Simulator is the last delivery tier: a deterministic local responder that
// echoes the prompt with a simulation marker.
type Simulator struct {
	delay time.Duration
}

// NewSimulator creates a simulator with the given synthetic delay.
// A non-positive delay uses DefaultSimulationDelay.
func NewSimulator(delay time.Duration) *Simulator {
	if delay <= 0 {
		delay = DefaultSimulationDelay
	}
	return &Simulator{delay: delay}
}

// Respond echoes the prompt after the synthetic delay.
// It fails only when the context is cancelled first.
func (s *Simulator) Respond(ctx context.Context, prompt string) (string, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}

	return fmt.Sprintf("[SIMULATION MODE]\nPrompt: %q", prompt), nil
}
