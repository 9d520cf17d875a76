package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/dependencies/idgen"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/balance"
	"github.com/mcoot/lanequeue/internal/services/ownership"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
	"github.com/mcoot/lanequeue/internal/storage"
)

// ChannelChecker reports whether a participant can currently be reached
type ChannelChecker interface {
	HasActiveChannel(ctx context.Context, id model.ParticipantID) (bool, error)
}

// Acceptance starts the downstream ready-check for a newly formed match
type Acceptance interface {
	BeginAcceptance(ctx context.Context, match *model.Match, teamA, teamB model.Roster) error
}

// Protocol validates, persists and announces a match for ten claimed
// participants, or restores all of them.
type Protocol struct {
	queue      storage.QueueStore
	matches    storage.MatchStore
	states     *playerstate.Service
	owners     *ownership.Service
	channels   ChannelChecker
	publisher  events.Publisher
	acceptance Acceptance
	ids        idgen.Generator
	clock      clock.Clock
	logger     *slog.Logger
}

// NewProtocol creates a match creation protocol
func NewProtocol(
	queue storage.QueueStore,
	matches storage.MatchStore,
	states *playerstate.Service,
	owners *ownership.Service,
	channels ChannelChecker,
	publisher events.Publisher,
	acceptance Acceptance,
	ids idgen.Generator,
	clk clock.Clock,
	logger *slog.Logger,
) *Protocol {
	return &Protocol{
		queue:      queue,
		matches:    matches,
		states:     states,
		owners:     owners,
		channels:   channels,
		publisher:  publisher,
		acceptance: acceptance,
		ids:        ids,
		clock:      clk,
		logger:     logger.With(slog.String("component", "matchmaking")),
	}
}

// creation tracks what has been mutated so far, for rollback
type creation struct {
	participants []model.QueuedParticipant
	transitioned []model.ParticipantID
	match        *model.Match
	owned        []model.ParticipantID
	announced    bool
}

// Create runs the creation cascade for participants already marked as
// processing in the queue store. On success the returned match is persisted,
// owned, announced and handed to acceptance, and the queue rows are removed.
// Validation failures return *AbortError. Any failure leaves the processing
// sentinel for the caller to revert.
func (p *Protocol) Create(ctx context.Context, participants []model.QueuedParticipant, teams balance.Result) (match *model.Match, err error) {
	c := &creation{participants: participants}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("match creation panicked: %v", r)
		}
		if err != nil {
			p.rollback(context.WithoutCancel(ctx), c, err)
			match = nil
		}
	}()

	if err := p.validate(ctx, participants); err != nil {
		return nil, err
	}

	// Step 5: lifecycle transitions, one at a time
	for _, participant := range participants {
		if err := p.states.Transition(ctx, participant.ID, model.StateInQueue, model.StateInMatchPending); err != nil {
			return nil, p.abort(StepTransition, []model.ParticipantID{participant.ID}, err)
		}
		c.transitioned = append(c.transitioned, participant.ID)
	}

	// Step 6: persist
	now := p.clock.Now()
	c.match = &model.Match{
		ID:        model.MatchID(p.ids.NewID()),
		Status:    model.MatchStatusPendingAcceptance,
		TeamA:     teams.TeamA,
		TeamB:     teams.TeamB,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.matches.Save(ctx, c.match); err != nil {
		c.match = nil
		return nil, fmt.Errorf("save match: %w", err)
	}

	for _, participant := range participants {
		if err := p.owners.Register(ctx, participant.ID, c.match.ID); err != nil {
			return nil, fmt.Errorf("register ownership: %w", err)
		}
		c.owned = append(c.owned, participant.ID)
	}

	// Step 7: announce to exactly the ten participants. A failed publish may
	// still have reached some of them.
	c.announced = true
	if err := p.publisher.PublishMatchFormed(ctx, c.match.ID, c.match.ParticipantIDs()); err != nil {
		return nil, fmt.Errorf("publish match formed: %w", err)
	}

	// Step 8: hand off
	if err := p.acceptance.BeginAcceptance(ctx, c.match, c.match.TeamA, c.match.TeamB); err != nil {
		return nil, fmt.Errorf("begin acceptance: %w", err)
	}

	// The match and states already say where these players are, so a failed
	// removal only leaves stale processing rows behind.
	if err := p.queue.RemoveAll(ctx, model.ParticipantIDs(participants)); err != nil {
		p.logger.Error("failed to remove matched participants from queue",
			slog.String("match_id", string(c.match.ID)),
			slog.String("error", err.Error()),
		)
	}

	p.logger.Info("match created",
		slog.String("match_id", string(c.match.ID)),
		slog.Int("team_a_rating", c.match.TeamA.TotalRating),
		slog.Int("team_b_rating", c.match.TeamB.TotalRating),
	)
	return c.match, nil
}

// Recover settles processing claims abandoned by a pass that never finished.
// Participants whose match was persisted leave the queue; the rest become
// available again and their cached state is reconciled.
func (p *Protocol) Recover(ctx context.Context, stale []model.QueuedParticipant) error {
	var matched, requeued []model.ParticipantID
	for _, participant := range stale {
		_, err := p.matches.FindActiveForParticipant(ctx, participant.ID)
		switch {
		case err == nil:
			matched = append(matched, participant.ID)
		case errors.Is(err, model.ErrMatchNotFound):
			requeued = append(requeued, participant.ID)
		default:
			return err
		}
	}

	if err := p.queue.RemoveAll(ctx, matched); err != nil {
		return fmt.Errorf("remove matched claims: %w", err)
	}
	if err := p.queue.RevertProcessing(ctx, requeued); err != nil {
		return fmt.Errorf("revert stale claims: %w", err)
	}
	for _, id := range requeued {
		if _, err := p.states.GetState(ctx, id); err != nil {
			return err
		}
	}

	p.logger.Warn("recovered abandoned claims",
		slog.Int("requeued", len(requeued)),
		slog.Int("matched", len(matched)),
	)
	if len(requeued) > 0 {
		if err := p.publisher.PublishQueueChanged(ctx); err != nil {
			p.logger.Warn("failed to publish queue change", slog.String("error", err.Error()))
		}
	}
	return nil
}

// validate runs steps 1 to 4, which only read (or self-heal) state
func (p *Protocol) validate(ctx context.Context, participants []model.QueuedParticipant) error {
	// Step 1: still queued
	var failed []model.ParticipantID
	for _, participant := range participants {
		ok, err := p.queue.IsActiveMember(ctx, participant.ID)
		if err != nil {
			return err
		}
		if !ok {
			failed = append(failed, participant.ID)
		}
	}
	if len(failed) > 0 {
		return p.abort(StepQueueMembership, failed, model.ErrNotQueued)
	}

	// Step 2: not already in a match
	for _, participant := range participants {
		state, err := p.states.GetState(ctx, participant.ID)
		if err != nil {
			return err
		}
		if state.InMatch() {
			failed = append(failed, participant.ID)
		}
	}
	if len(failed) > 0 {
		return p.abort(StepPlayerState, failed, model.ErrAlreadyInMatch)
	}

	// Step 3: not owned by a live match; ghost records are healed by Reconcile
	for _, participant := range participants {
		_, owned, err := p.owners.Reconcile(ctx, participant.ID)
		if err != nil {
			return err
		}
		if owned {
			failed = append(failed, participant.ID)
		}
	}
	if len(failed) > 0 {
		return p.abort(StepOwnership, failed, model.ErrOwnershipActive)
	}

	// Step 4: every human can be told about the match
	for _, participant := range participants {
		if participant.IsSimulated() {
			continue
		}
		ok, err := p.channels.HasActiveChannel(ctx, participant.ID)
		if err != nil {
			return err
		}
		if !ok {
			failed = append(failed, participant.ID)
		}
	}
	if len(failed) > 0 {
		return p.abort(StepChannel, failed, model.ErrChannelMissing)
	}
	return nil
}

func (p *Protocol) abort(step Step, ids []model.ParticipantID, cause error) error {
	attrs := []any{slog.String("step", step.String()), slog.String("error", cause.Error())}
	for _, id := range ids {
		attrs = append(attrs, slog.String("participant_id", string(id)))
	}
	p.logger.Warn("match creation aborted", attrs...)
	return &AbortError{Step: step, Participants: ids, Cause: cause}
}

// rollback undoes whatever c recorded. A persisted match is cancelled rather
// than deleted, which also releases its ownership records.
func (p *Protocol) rollback(ctx context.Context, c *creation, cause error) {
	if c.match != nil {
		p.logger.Error("match creation failed after persistence",
			slog.String("match_id", string(c.match.ID)),
			slog.String("error", cause.Error()),
		)
		if err := p.matches.UpdateStatus(ctx, c.match.ID, model.MatchStatusCancelled); err != nil {
			p.logger.Error("failed to cancel match",
				slog.String("match_id", string(c.match.ID)),
				slog.String("error", err.Error()),
			)
		}
		for _, id := range c.owned {
			if err := p.owners.Clear(ctx, id); err != nil {
				p.logger.Error("failed to clear ownership",
					slog.String("participant_id", string(id)),
					slog.String("match_id", string(c.match.ID)),
					slog.String("error", err.Error()),
				)
			}
		}
	} else {
		var abort *AbortError
		if !errors.As(cause, &abort) {
			p.logger.Error("match creation failed", slog.String("error", cause.Error()))
		}
	}

	for _, id := range c.transitioned {
		if err := p.states.ForceSetState(ctx, id, model.StateInQueue); err != nil {
			p.logger.Error("failed to revert player state",
				slog.String("participant_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
	}

	// Everyone told about the match must hear that it is gone
	if c.announced {
		if err := p.publisher.PublishMatchCancelled(ctx, c.match.ID, c.match.ParticipantIDs()); err != nil {
			p.logger.Error("failed to announce cancellation",
				slog.String("match_id", string(c.match.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
