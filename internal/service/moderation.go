package service

import (
	"context"
	"unicode/utf8"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

func (s *participationService) Moderate(ctx context.Context, activityID, participantID, externalUserID string, decision domain.ModerationDecision) (*domain.ParticipantSummary, error) {
	const method = "participationService.Moderate"
	logger.EnterMethod(method, "activityID", activityID, "participantID", participantID, "action", decision.Action)

	if err := validateDecision(decision); err != nil {
		exitMethod(method, err)
		return nil, err
	}

	var moderated *domain.Participant
	err := s.run(ctx, "moderate_"+string(decision.Action), func(ctx context.Context, cs *changeSet) error {
		activity, p, err := loadForTransition(ctx, cs, activityID, participantID)
		if err != nil {
			return err
		}
		if CanAct(externalUserID, p, activity) != ActorHost {
			return domain.Forbidden("only the host can approve or reject participants")
		}

		if decision.Action == domain.ModerationActionApprove {
			err = s.approve(ctx, cs, activity, p)
		} else {
			err = s.reject(ctx, cs, activity, p, decision.Message)
		}
		if err != nil {
			return err
		}
		moderated = p
		return nil
	})
	if err != nil {
		exitMethod(method, err)
		return nil, err
	}

	summary := moderated.Summary()
	logger.ExitMethod(method, "participantID", moderated.ID, "status", moderated.Status)
	return &summary, nil
}

func (s *participationService) approve(ctx context.Context, cs *changeSet, activity *domain.Activity, p *domain.Participant) error {
	switch p.Status {
	case domain.ParticipantStatusConfirmed:
		return nil
	case domain.ParticipantStatusPending:
	default:
		return domain.BadRequest("participant is not awaiting approval")
	}

	confirmed, err := cs.participants().CountByStatus(ctx, activity.ID, domain.ParticipantStatusConfirmed)
	if err != nil {
		return err
	}
	if err := s.gate.CheckApproval(activity, confirmed); err != nil {
		return err
	}

	p.Status = domain.ParticipantStatusConfirmed
	p.WaitlistPosition = nil
	p.ApprovedAt = cs.timestamp()
	if p.JoinedAt == nil {
		p.JoinedAt = cs.timestamp()
	}
	if err := cs.participants().Update(ctx, p); err != nil {
		return err
	}
	cs.moved(domain.ParticipantStatusPending, p.Status)
	if err := cs.record(ctx, p, domain.EventTypeApproved, nil); err != nil {
		return err
	}

	_, err = ResequenceWaitlist(ctx, cs.participants(), activity.ID)
	return err
}

func (s *participationService) reject(ctx context.Context, cs *changeSet, activity *domain.Activity, p *domain.Participant, message *string) error {
	if !p.IsActive() {
		return nil
	}

	prev := p.Status
	p.Status = domain.ParticipantStatusCancelled
	p.WaitlistPosition = nil
	p.CancelledAt = cs.timestamp()
	if message != nil {
		p.ApprovalMessage = message
	}
	if err := cs.participants().Update(ctx, p); err != nil {
		return err
	}
	cs.moved(prev, p.Status)

	var metadata map[string]any
	if message != nil && *message != "" {
		metadata = map[string]any{"message": *message}
	}
	if err := cs.record(ctx, p, domain.EventTypeRejected, metadata); err != nil {
		return err
	}

	return s.repairAfterRemoval(ctx, cs, activity, prev)
}

func validateDecision(decision domain.ModerationDecision) error {
	switch decision.Action {
	case domain.ModerationActionApprove, domain.ModerationActionReject:
	default:
		return domain.BadRequest("unknown moderation action %q", decision.Action)
	}
	if decision.Message != nil && utf8.RuneCountInString(*decision.Message) > maxMessageLength {
		return domain.BadRequest("message must be at most %d characters", maxMessageLength)
	}
	return nil
}
