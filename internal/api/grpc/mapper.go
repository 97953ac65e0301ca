package grpc

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Outercircl-dev/backend/internal/domain"
)

func requiredString(req *structpb.Struct, field string) (string, error) {
	v, ok := req.GetFields()[field]
	if !ok || v.GetStringValue() == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return v.GetStringValue(), nil
}

// optionalString returns nil for an absent or null field.
func optionalString(req *structpb.Struct, field string) (*string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		s := k.StringValue
		return &s, nil
	}
	return nil, status.Errorf(codes.InvalidArgument, "%s must be a string", field)
}

func MapSummaryToStruct(p *domain.ParticipantSummary) (*structpb.Struct, error) {
	return structpb.NewStruct(summaryFields(p))
}

func MapRosterToStruct(roster []domain.ParticipantSummary) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(roster))
	for i := range roster {
		items = append(items, summaryFields(&roster[i]))
	}
	return structpb.NewStruct(map[string]interface{}{"participants": items})
}

func summaryFields(p *domain.ParticipantSummary) map[string]interface{} {
	fields := map[string]interface{}{
		"id":               p.ID,
		"profileId":        p.ProfileID,
		"externalUserId":   p.ExternalUserID,
		"status":           string(p.Status),
		"waitlistPosition": nil,
		"approvalMessage":  nil,
		"joinedAt":         formatTime(p.JoinedAt),
		"approvedAt":       formatTime(p.ApprovedAt),
		"cancelledAt":      formatTime(p.CancelledAt),
	}
	if p.WaitlistPosition != nil {
		fields["waitlistPosition"] = *p.WaitlistPosition
	}
	if p.ApprovalMessage != nil {
		fields["approvalMessage"] = *p.ApprovalMessage
	}
	return fields
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
