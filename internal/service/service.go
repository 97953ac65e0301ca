package service

import (
	"context"

	"github.com/Outercircl-dev/backend/internal/domain"
)

type ParticipationService interface {
	Join(ctx context.Context, activityID, externalUserID string, opts domain.JoinOptions) (*domain.ParticipantSummary, error)
	Cancel(ctx context.Context, activityID, participantID, externalUserID string) (*domain.ParticipantSummary, error)
	Moderate(ctx context.Context, activityID, participantID, externalUserID string, decision domain.ModerationDecision) (*domain.ParticipantSummary, error)
	ListRoster(ctx context.Context, activityID, externalUserID string) ([]domain.ParticipantSummary, error)
}

// EventDispatcher delivers outbox events once the transaction that recorded
// them has committed. Deliver is called on the request goroutine, so
// implementations used in production must not block on the network. Delivery
// failures are the dispatcher's concern; the events stay in the outbox for
// the next sweep.
type EventDispatcher interface {
	Deliver(ctx context.Context, events []domain.ParticipationEvent)
}
