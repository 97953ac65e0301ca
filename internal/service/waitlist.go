package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/repository"
)

// OrderWaitlist sorts waitlisted participants into queue order: position,
// then join time, then id. Missing positions and join times sort last.
func OrderWaitlist(ps []domain.Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if c := compareInt32Ptr(a.WaitlistPosition, b.WaitlistPosition); c != 0 {
			return c < 0
		}
		switch {
		case a.JoinedAt == nil && b.JoinedAt != nil:
			return false
		case a.JoinedAt != nil && b.JoinedAt == nil:
			return true
		case a.JoinedAt != nil && !a.JoinedAt.Equal(*b.JoinedAt):
			return a.JoinedAt.Before(*b.JoinedAt)
		}
		return a.ID < b.ID
	})
}

// ResequenceWaitlist renumbers the activity's waitlist to 1..N in queue
// order and returns how many rows it rewrote. Rows already in place are not
// written, so a second call is a no-op.
func ResequenceWaitlist(ctx context.Context, participants repository.ParticipantRepository, activityID string) (int, error) {
	waitlisted, err := participants.ListWaitlisted(ctx, activityID)
	if err != nil {
		return 0, fmt.Errorf("list waitlist: %w", err)
	}
	OrderWaitlist(waitlisted)

	changed := 0
	for i := range waitlisted {
		want := int32(i + 1)
		p := &waitlisted[i]
		if p.WaitlistPosition != nil && *p.WaitlistPosition == want {
			continue
		}
		if err := participants.SetWaitlistPosition(ctx, p.ID, want); err != nil {
			return changed, fmt.Errorf("set waitlist position of %s: %w", p.ID, err)
		}
		changed++
	}
	return changed, nil
}

// compareInt32Ptr orders nil after every value.
func compareInt32Ptr(a, b *int32) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
