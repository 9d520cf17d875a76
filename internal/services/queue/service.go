package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Trigger starts a processing pass without waiting for the next tick
type Trigger interface {
	Trigger()
}

// JoinRequest describes a participant entering the queue
type JoinRequest struct {
	ID            model.ParticipantID
	DisplayName   string
	Region        string
	Rating        int
	PrimaryLane   model.Lane
	SecondaryLane model.Lane
	IsBot         bool
}

// Service handles participants entering and leaving the queue
type Service struct {
	queue     storage.QueueStore
	states    *playerstate.Service
	publisher events.Publisher
	trigger   Trigger
	clock     clock.Clock
	logger    *slog.Logger
}

// New creates a new queue service
func New(
	queue storage.QueueStore,
	states *playerstate.Service,
	publisher events.Publisher,
	trigger Trigger,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		queue:     queue,
		states:    states,
		publisher: publisher,
		trigger:   trigger,
		clock:     clk,
		logger:    logger.With(slog.String("component", "queue")),
	}
}

// Join puts the participant at the back of the queue
func (s *Service) Join(ctx context.Context, req JoinRequest) (*model.QueuedParticipant, error) {
	if !req.PrimaryLane.Valid() {
		return nil, model.ErrInvalidLane
	}
	if req.SecondaryLane != "" && !req.SecondaryLane.Valid() {
		return nil, model.ErrInvalidLane
	}

	ok, err := s.states.CanJoinQueue(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.joinRefusal(ctx, req.ID)
	}

	p := &model.QueuedParticipant{
		ID:            req.ID,
		DisplayName:   req.DisplayName,
		Region:        req.Region,
		Rating:        req.Rating,
		PrimaryLane:   req.PrimaryLane,
		SecondaryLane: req.SecondaryLane,
		IsBot:         req.IsBot || model.IsBotID(req.ID),
		JoinedAt:      s.clock.Now(),
		Status:        model.ProcessingAvailable,
	}
	if err := s.queue.Add(ctx, p); err != nil {
		return nil, err
	}

	if err := s.states.Transition(ctx, p.ID, model.StateAvailable, model.StateInQueue); err != nil {
		if !errors.Is(err, model.ErrStateConflict) {
			return nil, err
		}
		// Someone read the state after the insert; it has converged already
		if _, err := s.states.GetState(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("participant queued",
		slog.String("participant_id", string(p.ID)),
		slog.Int("rating", p.Rating),
	)
	s.changed(ctx)
	return p, nil
}

// joinRefusal explains why a participant who cannot join was turned away
func (s *Service) joinRefusal(ctx context.Context, id model.ParticipantID) error {
	state, err := s.states.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state == model.StateInQueue {
		return model.ErrAlreadyQueued
	}
	return model.ErrAlreadyInMatch
}

// Leave removes the participant from the queue. Participants already placed
// in a match cannot leave through here.
func (s *Service) Leave(ctx context.Context, id model.ParticipantID) error {
	state, err := s.states.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state.InMatch() {
		return model.ErrAlreadyInMatch
	}

	if err := s.queue.Remove(ctx, id); err != nil {
		if errors.Is(err, model.ErrParticipantNotFound) {
			return model.ErrNotQueued
		}
		return err
	}

	if err := s.states.Transition(ctx, id, model.StateInQueue, model.StateAvailable); err != nil {
		if !errors.Is(err, model.ErrStateConflict) {
			return err
		}
		if _, err := s.states.GetState(ctx, id); err != nil {
			return err
		}
	}

	s.logger.Info("participant left queue", slog.String("participant_id", string(id)))
	s.changed(ctx)
	return nil
}

// Positions returns the queue in join order with 1-based positions
func (s *Service) Positions(ctx context.Context) ([]model.QueuedParticipant, error) {
	return s.queue.List(ctx)
}

func (s *Service) changed(ctx context.Context) {
	if err := s.publisher.PublishQueueChanged(ctx); err != nil {
		s.logger.Warn("failed to publish queue change", slog.String("error", err.Error()))
	}

	eligible, err := s.queue.CountEligible(ctx)
	if err != nil {
		s.logger.Warn("failed to count queue", slog.String("error", err.Error()))
		return
	}
	if eligible >= model.MatchSize && s.trigger != nil {
		s.trigger.Trigger()
	}
}
