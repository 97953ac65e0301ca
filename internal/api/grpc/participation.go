package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/service"
)

type ParticipationHandler struct {
	svc service.ParticipationService
}

func NewParticipationHandler(svc service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{svc: svc}
}

func (h *ParticipationHandler) Join(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	activityID, err := requiredString(req, "activityId")
	if err != nil {
		return nil, err
	}
	message, err := optionalString(req, "message")
	if err != nil {
		return nil, err
	}
	inviteCode, err := optionalString(req, "inviteCode")
	if err != nil {
		return nil, err
	}

	summary, err := h.svc.Join(ctx, activityID, userID, domain.JoinOptions{Message: message, InviteCode: inviteCode})
	if err != nil {
		return nil, toStatus(err)
	}
	return MapSummaryToStruct(summary)
}

func (h *ParticipationHandler) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	activityID, participantID, err := participantRef(req)
	if err != nil {
		return nil, err
	}

	summary, err := h.svc.Cancel(ctx, activityID, participantID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return MapSummaryToStruct(summary)
}

func (h *ParticipationHandler) Moderate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	activityID, participantID, err := participantRef(req)
	if err != nil {
		return nil, err
	}
	action, err := requiredString(req, "action")
	if err != nil {
		return nil, err
	}
	message, err := optionalString(req, "message")
	if err != nil {
		return nil, err
	}

	decision := domain.ModerationDecision{Action: domain.ModerationAction(action), Message: message}
	summary, err := h.svc.Moderate(ctx, activityID, participantID, userID, decision)
	if err != nil {
		return nil, toStatus(err)
	}
	return MapSummaryToStruct(summary)
}

func (h *ParticipationHandler) ListRoster(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	activityID, err := requiredString(req, "activityId")
	if err != nil {
		return nil, err
	}

	roster, err := h.svc.ListRoster(ctx, activityID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return MapRosterToStruct(roster)
}

func participantRef(req *structpb.Struct) (activityID, participantID string, err error) {
	if activityID, err = requiredString(req, "activityId"); err != nil {
		return "", "", err
	}
	if participantID, err = requiredString(req, "participantId"); err != nil {
		return "", "", err
	}
	return activityID, participantID, nil
}
