package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outercircl-dev/backend/internal/domain"
)

func TestParticipationService_ListRoster(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	f := newFixture(publicActivity("act-1", 2))
	f.store.put(domain.Participant{ID: "cancelled", ActivityID: "act-1", ExternalUserID: "erin", Status: domain.ParticipantStatusCancelled, JoinedAt: ptr(base)})
	f.store.put(domain.Participant{ID: "wait-2", ActivityID: "act-1", ExternalUserID: "dave", Status: domain.ParticipantStatusWaitlisted, WaitlistPosition: ptr(int32(2)), JoinedAt: ptr(base)})
	f.store.put(domain.Participant{ID: "wait-1", ActivityID: "act-1", ExternalUserID: "carol", Status: domain.ParticipantStatusWaitlisted, WaitlistPosition: ptr(int32(1)), JoinedAt: ptr(base.Add(time.Hour))})
	f.store.put(domain.Participant{ID: "pending", ActivityID: "act-1", ExternalUserID: "frank", Status: domain.ParticipantStatusPending})
	f.store.put(domain.Participant{ID: "confirmed-late", ActivityID: "act-1", ExternalUserID: "bob", Status: domain.ParticipantStatusConfirmed, JoinedAt: ptr(base.Add(time.Minute))})
	f.store.put(domain.Participant{ID: "confirmed-early", ActivityID: "act-1", ExternalUserID: "alice", Status: domain.ParticipantStatusConfirmed, JoinedAt: ptr(base)})
	f.store.put(domain.Participant{ID: "elsewhere", ActivityID: "act-2", ExternalUserID: "alice", Status: domain.ParticipantStatusConfirmed})

	t.Run("Host sees everyone in roster order", func(t *testing.T) {
		roster, err := f.svc.ListRoster(ctx, "act-1", hostID)
		require.NoError(t, err)

		var ids []string
		for _, p := range roster {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"confirmed-early", "confirmed-late", "pending", "wait-1", "wait-2", "cancelled"}, ids)
	})

	t.Run("Participants cannot list", func(t *testing.T) {
		_, err := f.svc.ListRoster(ctx, "act-1", "alice")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Unknown activity", func(t *testing.T) {
		_, err := f.svc.ListRoster(ctx, "missing", hostID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
