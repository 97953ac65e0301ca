package service

import (
	"context"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

// promoteNext gives one free confirmed seat to the head of the waitlist and
// closes the gap it leaves. It promotes at most one participant per call and
// returns nil when the activity is still full or nobody is waiting.
func (s *participationService) promoteNext(ctx context.Context, cs *changeSet, activity *domain.Activity) (*domain.Participant, error) {
	participants := cs.participants()

	confirmed, err := participants.CountByStatus(ctx, activity.ID, domain.ParticipantStatusConfirmed)
	if err != nil {
		return nil, err
	}
	if confirmed >= activity.MaxParticipants {
		return nil, nil
	}

	waitlisted, err := participants.ListWaitlisted(ctx, activity.ID)
	if err != nil {
		return nil, err
	}
	if len(waitlisted) == 0 {
		return nil, nil
	}
	OrderWaitlist(waitlisted)

	next := waitlisted[0]
	next.Status = domain.ParticipantStatusConfirmed
	next.WaitlistPosition = nil
	next.ApprovedAt = cs.timestamp()
	if err := participants.Update(ctx, &next); err != nil {
		return nil, err
	}
	cs.moved(domain.ParticipantStatusWaitlisted, domain.ParticipantStatusConfirmed)
	if err := cs.record(ctx, &next, domain.EventTypePromoted, nil); err != nil {
		return nil, err
	}
	logger.WithActivity(activity.ID).Info("Promoted participant from waitlist", "participantID", next.ID)

	if _, err := ResequenceWaitlist(ctx, participants, activity.ID); err != nil {
		return nil, err
	}
	return &next, nil
}
