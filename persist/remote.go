package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/jpetree331/continuum/bridge"
	"github.com/jpetree331/continuum/config"
	"github.com/jpetree331/continuum/journal"
	"github.com/jpetree331/continuum/schedule"
)

// Remote keeps the directive set and settings on the relay bridge, where the
// archive also lives. Memories and the working journal remain local: the
// bridge has no endpoint for them, and the journal is archived organically
// through triggered deliveries.
type Remote struct {
	client *bridge.Client
	local  *Local
	log    *zap.SugaredLogger
}

// NewRemote creates a remote strategy backed by the bridge, with the local
// strategy carrying the bridge-less collections.
func NewRemote(client *bridge.Client, local *Local, log *zap.SugaredLogger) *Remote {
	return &Remote{client: client, local: local, log: log}
}

// Name implements Strategy
func (r *Remote) Name() string { return "remote" }

// Load reads directives and settings from the bridge and the rest locally
func (r *Remote) Load(ctx context.Context) (*State, error) {
	directives, err := r.client.Schedules(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := r.client.Settings(ctx)
	if err != nil {
		return nil, err
	}

	localState, err := r.local.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &State{
		Directives: directives,
		Settings:   settings,
		Memories:   localState.Memories,
		Journal:    localState.Journal,
	}, nil
}

// SaveDirectives implements Strategy
func (r *Remote) SaveDirectives(ctx context.Context, directives []schedule.Directive) error {
	return r.client.SaveSchedules(ctx, directives)
}

// SaveSettings implements Strategy
func (r *Remote) SaveSettings(ctx context.Context, settings config.Settings) error {
	return r.client.SaveSettings(ctx, settings)
}

// SaveMemories implements Strategy
func (r *Remote) SaveMemories(ctx context.Context, memories []Memory) error {
	return r.local.SaveMemories(ctx, memories)
}

// SaveJournal implements Strategy
func (r *Remote) SaveJournal(ctx context.Context, entries []journal.Entry) error {
	return r.local.SaveJournal(ctx, entries)
}

// Choose selects the persistence strategy once at startup. The bridge wins
// when configured and reachable; a failed remote load falls back to local.
// The chosen strategy's loaded state is returned alongside it.
func Choose(ctx context.Context, client *bridge.Client, local *Local, log *zap.SugaredLogger) (Strategy, *State, error) {
	if client != nil && client.Configured() {
		remote := NewRemote(client, local, log)
		state, err := remote.Load(ctx)
		if err == nil {
			log.Infow("Using remote persistence", "strategy", remote.Name())
			return remote, state, nil
		}
		log.Warnw("Bridge unreachable at startup, falling back to local persistence",
			"error", err)
	}

	state, err := local.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("Using local persistence", "strategy", local.Name())
	return local, state, nil
}
