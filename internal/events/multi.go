package events

import (
	"context"
	"errors"

	"github.com/mcoot/lanequeue/internal/model"
)

// Multi fans every event out to each publisher in turn
type Multi []Publisher

var _ Publisher = Multi(nil)

func (m Multi) PublishMatchFormed(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishMatchFormed(ctx, matchID, participants))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishMatchCancelled(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishMatchCancelled(ctx, matchID, participants))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishQueueChanged(ctx context.Context) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishQueueChanged(ctx))
	}
	return errors.Join(errs...)
}
