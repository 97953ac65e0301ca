package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/metrics"
	"github.com/Outercircl-dev/backend/internal/repository"
)

const (
	maxMessageLength    = 500
	maxInviteCodeLength = 64
)

type participationService struct {
	txm        repository.TxManager
	gate       *CapacityGate
	dispatcher EventDispatcher
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewParticipationService wires the engine. dispatcher and m may be nil; the
// outbox sweep then delivers every event.
func NewParticipationService(
	txm repository.TxManager,
	gate *CapacityGate,
	dispatcher EventDispatcher,
	m *metrics.Metrics,
) ParticipationService {
	if gate == nil {
		gate = NewCapacityGate(AllowModeration)
	}
	return &participationService{
		txm:        txm,
		gate:       gate,
		dispatcher: dispatcher,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *participationService) Join(ctx context.Context, activityID, externalUserID string, opts domain.JoinOptions) (*domain.ParticipantSummary, error) {
	const method = "participationService.Join"
	logger.EnterMethod(method, "activityID", activityID, "userID", externalUserID)

	if err := validateJoinOptions(opts); err != nil {
		exitMethod(method, err)
		return nil, err
	}

	var joined *domain.Participant
	err := s.run(ctx, "join", func(ctx context.Context, cs *changeSet) error {
		profileID, err := cs.tx.Profiles().ResolveProfileID(ctx, externalUserID)
		if err != nil {
			return err
		}
		activity, err := cs.tx.Activities().GetForUpdate(ctx, activityID)
		if err != nil {
			return err
		}
		if err := s.gate.Admit(activity, externalUserID); err != nil {
			return err
		}

		existing, err := cs.participants().FindByActivityAndProfile(ctx, activityID, profileID)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsActive() {
			return domain.BadRequest("you have already joined or requested to join this activity")
		}

		occ, err := occupancy(ctx, cs.participants(), activityID)
		if err != nil {
			return err
		}
		placement := s.gate.Place(activity, occ)

		p := existing
		var from domain.ParticipantStatus
		if p == nil {
			p = &domain.Participant{
				ActivityID:      activityID,
				ProfileID:       profileID,
				ApprovalMessage: opts.Message,
				InviteCode:      opts.InviteCode,
			}
		} else {
			from = p.Status
			p.ApprovedAt = nil
			if opts.Message != nil {
				p.ApprovalMessage = opts.Message
			}
			if opts.InviteCode != nil {
				p.InviteCode = opts.InviteCode
			}
		}
		p.ExternalUserID = externalUserID
		p.Status = placement.Status
		p.WaitlistPosition = placement.WaitlistPosition
		p.CancelledAt = nil
		if p.JoinedAt == nil {
			p.JoinedAt = cs.timestamp()
		}

		if existing == nil {
			err = cs.participants().Create(ctx, p)
		} else {
			err = cs.participants().Update(ctx, p)
		}
		if err != nil {
			return err
		}
		cs.moved(from, p.Status)

		if err := recordJoin(ctx, cs, p); err != nil {
			return err
		}
		joined = p
		return nil
	})
	if err != nil {
		exitMethod(method, err)
		return nil, err
	}

	summary := joined.Summary()
	logger.ExitMethod(method, "participantID", joined.ID, "status", joined.Status)
	return &summary, nil
}

func (s *participationService) Cancel(ctx context.Context, activityID, participantID, externalUserID string) (*domain.ParticipantSummary, error) {
	const method = "participationService.Cancel"
	logger.EnterMethod(method, "activityID", activityID, "participantID", participantID, "userID", externalUserID)

	var cancelled *domain.Participant
	err := s.run(ctx, "cancel", func(ctx context.Context, cs *changeSet) error {
		activity, p, err := loadForTransition(ctx, cs, activityID, participantID)
		if err != nil {
			return err
		}
		if CanAct(externalUserID, p, activity) == ActorNone {
			return domain.Forbidden("you do not have permission to cancel this participation")
		}
		if !p.IsActive() {
			cancelled = p
			return nil
		}

		prev := p.Status
		p.Status = domain.ParticipantStatusCancelled
		p.WaitlistPosition = nil
		p.CancelledAt = cs.timestamp()
		if err := cs.participants().Update(ctx, p); err != nil {
			return err
		}
		cs.moved(prev, p.Status)
		if err := cs.record(ctx, p, domain.EventTypeCancelled, nil); err != nil {
			return err
		}

		if err := s.repairAfterRemoval(ctx, cs, activity, prev); err != nil {
			return err
		}
		cancelled = p
		return nil
	})
	if err != nil {
		exitMethod(method, err)
		return nil, err
	}

	summary := cancelled.Summary()
	logger.ExitMethod(method, "participantID", cancelled.ID, "status", cancelled.Status)
	return &summary, nil
}

// repairAfterRemoval restores the waitlist invariants after a participant in
// prev status was cancelled or rejected. A vacated confirmed seat is offered
// to the head of the waitlist; any other removal only closes the gap.
func (s *participationService) repairAfterRemoval(ctx context.Context, cs *changeSet, activity *domain.Activity, prev domain.ParticipantStatus) error {
	switch prev {
	case domain.ParticipantStatusConfirmed:
		_, err := s.promoteNext(ctx, cs, activity)
		return err
	default:
		_, err := ResequenceWaitlist(ctx, cs.participants(), activity.ID)
		return err
	}
}

// run executes fn in one transaction and, after commit, publishes what the
// committed attempt recorded.
func (s *participationService) run(ctx context.Context, operation string, fn func(ctx context.Context, cs *changeSet) error) error {
	start := time.Now()
	var committed *changeSet
	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		cs := &changeSet{tx: tx, now: s.now()}
		if err := fn(ctx, cs); err != nil {
			return err
		}
		committed = cs
		return nil
	})
	s.metrics.ObserveOperation(operation, start, err)
	if err != nil {
		return err
	}

	for _, t := range committed.transitions {
		s.metrics.IncTransition(t.from, t.to)
	}
	for _, e := range committed.events {
		s.metrics.IncEventRecorded(e.Type)
	}
	if len(committed.events) > 0 && s.dispatcher != nil {
		s.dispatcher.Deliver(context.WithoutCancel(ctx), committed.events)
	}
	return nil
}

// loadForTransition locks the activity, then reads the participant under
// that lock.
func loadForTransition(ctx context.Context, cs *changeSet, activityID, participantID string) (*domain.Activity, *domain.Participant, error) {
	activity, err := cs.tx.Activities().GetForUpdate(ctx, activityID)
	if err != nil {
		return nil, nil, err
	}
	p, err := cs.participants().GetByID(ctx, participantID)
	if err != nil {
		return nil, nil, err
	}
	if p.ActivityID != activityID {
		return nil, nil, domain.NotFound("participation record not found")
	}
	return activity, p, nil
}

func occupancy(ctx context.Context, participants repository.ParticipantRepository, activityID string) (Occupancy, error) {
	confirmed, err := participants.CountByStatus(ctx, activityID, domain.ParticipantStatusConfirmed)
	if err != nil {
		return Occupancy{}, err
	}
	waitlisted, err := participants.CountByStatus(ctx, activityID, domain.ParticipantStatusWaitlisted)
	if err != nil {
		return Occupancy{}, err
	}
	return Occupancy{Confirmed: confirmed, Waitlisted: waitlisted}, nil
}

func recordJoin(ctx context.Context, cs *changeSet, p *domain.Participant) error {
	switch p.Status {
	case domain.ParticipantStatusConfirmed:
		return cs.record(ctx, p, domain.EventTypeJoined, nil)
	case domain.ParticipantStatusWaitlisted:
		return cs.record(ctx, p, domain.EventTypeWaitlisted, map[string]any{"waitlistPosition": *p.WaitlistPosition})
	default:
		return cs.record(ctx, p, domain.EventTypeApprovalPending, nil)
	}
}

func validateJoinOptions(opts domain.JoinOptions) error {
	if opts.Message != nil && utf8.RuneCountInString(*opts.Message) > maxMessageLength {
		return domain.BadRequest("message must be at most %d characters", maxMessageLength)
	}
	if opts.InviteCode != nil && utf8.RuneCountInString(*opts.InviteCode) > maxInviteCodeLength {
		return domain.BadRequest("invite code must be at most %d characters", maxInviteCodeLength)
	}
	return nil
}

// exitMethod logs caller mistakes at warn level and everything else as errors.
func exitMethod(method string, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrForbidden) {
		logger.ExitMethodRejected(method, err)
		return
	}
	logger.ExitMethodWithError(method, err)
}
