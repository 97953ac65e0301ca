package grpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	googlegrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Outercircl-dev/backend/internal/api/grpc"
	"github.com/Outercircl-dev/backend/internal/domain"
)

type MockParticipationService struct {
	mock.Mock
}

func (m *MockParticipationService) Join(ctx context.Context, activityID, externalUserID string, opts domain.JoinOptions) (*domain.ParticipantSummary, error) {
	args := m.Called(ctx, activityID, externalUserID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantSummary), args.Error(1)
}

func (m *MockParticipationService) Cancel(ctx context.Context, activityID, participantID, externalUserID string) (*domain.ParticipantSummary, error) {
	args := m.Called(ctx, activityID, participantID, externalUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantSummary), args.Error(1)
}

func (m *MockParticipationService) Moderate(ctx context.Context, activityID, participantID, externalUserID string, decision domain.ModerationDecision) (*domain.ParticipantSummary, error) {
	args := m.Called(ctx, activityID, participantID, externalUserID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantSummary), args.Error(1)
}

func (m *MockParticipationService) ListRoster(ctx context.Context, activityID, externalUserID string) ([]domain.ParticipantSummary, error) {
	args := m.Called(ctx, activityID, externalUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ParticipantSummary), args.Error(1)
}

func userCtx(userID string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("user-id", userID))
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestParticipationHandler_Join(t *testing.T) {
	svc := new(MockParticipationService)
	handler := grpc.NewParticipationHandler(svc)
	ctx := userCtx("alice")

	t.Run("Success", func(t *testing.T) {
		pos := int32(2)
		joined := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		svc.On("Join", ctx, "act-1", "alice", mock.MatchedBy(func(o domain.JoinOptions) bool {
			return o.Message != nil && *o.Message == "hi" && o.InviteCode == nil
		})).Return(&domain.ParticipantSummary{
			ID: "p1", ProfileID: "prof-a", ExternalUserID: "alice",
			Status: domain.ParticipantStatusWaitlisted, WaitlistPosition: &pos, JoinedAt: &joined,
		}, nil).Once()

		res, err := handler.Join(ctx, mustStruct(t, map[string]interface{}{"activityId": "act-1", "message": "hi"}))
		require.NoError(t, err)
		fields := res.GetFields()
		assert.Equal(t, "p1", fields["id"].GetStringValue())
		assert.Equal(t, "waitlisted", fields["status"].GetStringValue())
		assert.Equal(t, 2.0, fields["waitlistPosition"].GetNumberValue())
		assert.Equal(t, "2026-05-01T10:00:00Z", fields["joinedAt"].GetStringValue())
		_, isNull := fields["approvedAt"].GetKind().(*structpb.Value_NullValue)
		assert.True(t, isNull)
	})

	t.Run("Missing activity id", func(t *testing.T) {
		_, err := handler.Join(ctx, mustStruct(t, map[string]interface{}{}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Non-string message", func(t *testing.T) {
		_, err := handler.Join(ctx, mustStruct(t, map[string]interface{}{"activityId": "act-1", "message": 5}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := handler.Join(context.Background(), mustStruct(t, map[string]interface{}{"activityId": "act-1"}))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Domain errors map to codes", func(t *testing.T) {
		cases := []struct {
			activityID string
			err        error
			code       codes.Code
			msg        string
		}{
			{"missing", domain.NotFound("activity not found"), codes.NotFound, "activity not found"},
			{"hosted", domain.BadRequest("hosts cannot join their own activity"), codes.InvalidArgument, "hosts cannot join their own activity"},
			{"locked", domain.Conflict(errors.New("40001"), "retry"), codes.Aborted, "retry"},
			{"broken", errors.New("connection reset"), codes.Internal, "internal error"},
		}
		for _, c := range cases {
			svc.On("Join", ctx, c.activityID, "alice", domain.JoinOptions{}).Return(nil, c.err).Once()
			_, err := handler.Join(ctx, mustStruct(t, map[string]interface{}{"activityId": c.activityID}))
			st, _ := status.FromError(err)
			assert.Equal(t, c.code, st.Code(), c.activityID)
			assert.Equal(t, c.msg, st.Message(), c.activityID)
		}
	})

	svc.AssertExpectations(t)
}

func TestParticipationHandler_CancelAndModerate(t *testing.T) {
	svc := new(MockParticipationService)
	handler := grpc.NewParticipationHandler(svc)
	ctx := userCtx("host")

	t.Run("Cancel", func(t *testing.T) {
		cancelled := time.Now().UTC()
		svc.On("Cancel", ctx, "act-1", "p1", "host").Return(&domain.ParticipantSummary{
			ID: "p1", Status: domain.ParticipantStatusCancelled, CancelledAt: &cancelled,
		}, nil).Once()

		res, err := handler.Cancel(ctx, mustStruct(t, map[string]interface{}{"activityId": "act-1", "participantId": "p1"}))
		require.NoError(t, err)
		assert.Equal(t, "cancelled", res.GetFields()["status"].GetStringValue())
	})

	t.Run("Cancel requires participant id", func(t *testing.T) {
		_, err := handler.Cancel(ctx, mustStruct(t, map[string]interface{}{"activityId": "act-1"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Moderate reject with message", func(t *testing.T) {
		msg := "sorry, full"
		svc.On("Moderate", ctx, "act-1", "p2", "host", domain.ModerationDecision{
			Action: domain.ModerationActionReject, Message: &msg,
		}).Return(&domain.ParticipantSummary{
			ID: "p2", Status: domain.ParticipantStatusCancelled, ApprovalMessage: &msg,
		}, nil).Once()

		res, err := handler.Moderate(ctx, mustStruct(t, map[string]interface{}{
			"activityId": "act-1", "participantId": "p2", "action": "reject", "message": msg,
		}))
		require.NoError(t, err)
		assert.Equal(t, msg, res.GetFields()["approvalMessage"].GetStringValue())
	})

	t.Run("Moderate forbidden", func(t *testing.T) {
		svc.On("Moderate", ctx, "act-1", "p3", "host", domain.ModerationDecision{Action: domain.ModerationActionApprove}).
			Return(nil, domain.Forbidden("only the host can approve or reject participants")).Once()

		_, err := handler.Moderate(ctx, mustStruct(t, map[string]interface{}{
			"activityId": "act-1", "participantId": "p3", "action": "approve",
		}))
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	svc.AssertExpectations(t)
}

func TestParticipationHandler_ListRoster(t *testing.T) {
	svc := new(MockParticipationService)
	handler := grpc.NewParticipationHandler(svc)
	ctx := userCtx("host")

	svc.On("ListRoster", ctx, "act-1", "host").Return([]domain.ParticipantSummary{
		{ID: "p1", Status: domain.ParticipantStatusConfirmed},
		{ID: "p2", Status: domain.ParticipantStatusPending},
	}, nil).Once()

	res, err := handler.ListRoster(ctx, mustStruct(t, map[string]interface{}{"activityId": "act-1"}))
	require.NoError(t, err)
	items := res.GetFields()["participants"].GetListValue().GetValues()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].GetStructValue().GetFields()["id"].GetStringValue())
	assert.Equal(t, "pending", items[1].GetStructValue().GetFields()["status"].GetStringValue())
	svc.AssertExpectations(t)
}

func TestParticipationService_OverTheWire(t *testing.T) {
	svc := new(MockParticipationService)
	lis := bufconn.Listen(1 << 20)
	server := googlegrpc.NewServer()
	grpc.RegisterParticipationServiceServer(server, grpc.NewParticipationHandler(svc))
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := googlegrpc.NewClient("passthrough:///bufnet",
		googlegrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		googlegrpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	svc.On("Join", mock.Anything, "act-9", "bob", domain.JoinOptions{}).
		Return(&domain.ParticipantSummary{ID: "p9", Status: domain.ParticipantStatusConfirmed}, nil).Once()

	ctx := metadata.AppendToOutgoingContext(context.Background(), "user-id", "bob")
	req := mustStruct(t, map[string]interface{}{"activityId": "act-9"})
	res := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+grpc.ParticipationServiceName+"/Join", req, res)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.GetFields()["status"].GetStringValue())

	err = conn.Invoke(ctx, "/"+grpc.ParticipationServiceName+"/Unknown", req, res)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	svc.AssertExpectations(t)
}
