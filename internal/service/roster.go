package service

import (
	"context"
	"sort"
	"time"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

var rosterStatusRank = map[domain.ParticipantStatus]int{
	domain.ParticipantStatusConfirmed:  0,
	domain.ParticipantStatusPending:    1,
	domain.ParticipantStatusWaitlisted: 2,
	domain.ParticipantStatusCancelled:  3,
}

func (s *participationService) ListRoster(ctx context.Context, activityID, externalUserID string) ([]domain.ParticipantSummary, error) {
	const method = "participationService.ListRoster"
	logger.EnterMethod(method, "activityID", activityID, "userID", externalUserID)

	var roster []domain.Participant
	err := s.run(ctx, "list_roster", func(ctx context.Context, cs *changeSet) error {
		activity, err := cs.tx.Activities().Get(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.IsHost(externalUserID) {
			return domain.Forbidden("only the host can view the participant roster")
		}
		roster, err = cs.participants().ListByActivity(ctx, activityID)
		return err
	})
	if err != nil {
		exitMethod(method, err)
		return nil, err
	}

	SortRoster(roster)
	out := make([]domain.ParticipantSummary, 0, len(roster))
	for i := range roster {
		out = append(out, roster[i].Summary())
	}
	logger.ExitMethod(method, "count", len(out))
	return out, nil
}

// SortRoster orders participants for the host view: confirmed, pending,
// waitlisted, cancelled; then by waitlist position with blanks last; then by
// join time.
func SortRoster(ps []domain.Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if ra, rb := rosterStatusRank[a.Status], rosterStatusRank[b.Status]; ra != rb {
			return ra < rb
		}
		if c := compareInt32Ptr(a.WaitlistPosition, b.WaitlistPosition); c != 0 {
			return c < 0
		}
		return joinedAt(a).Before(joinedAt(b))
	})
}

// joinedAt treats a missing join time as the zero time.
func joinedAt(p domain.Participant) time.Time {
	if p.JoinedAt == nil {
		return time.Time{}
	}
	return *p.JoinedAt
}
