package repository

import (
	"context"
	"time"

	"github.com/Outercircl-dev/backend/internal/domain"
)

type ActivityRepository interface {
	// Get returns domain.ErrNotFound when the activity does not exist.
	Get(ctx context.Context, id string) (*domain.Activity, error)
	// GetForUpdate also locks the activity row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Activity, error)
}

type ProfileRepository interface {
	// ResolveProfileID returns domain.ErrBadRequest when the user has no completed profile.
	ResolveProfileID(ctx context.Context, externalUserID string) (string, error)
	LookupContact(ctx context.Context, externalUserID string) (*domain.Contact, error)
}

type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
	// FindByActivityAndProfile returns nil, nil when no row exists for the pair.
	FindByActivityAndProfile(ctx context.Context, activityID, profileID string) (*domain.Participant, error)
	Create(ctx context.Context, p *domain.Participant) error
	Update(ctx context.Context, p *domain.Participant) error
	CountByStatus(ctx context.Context, activityID string, status domain.ParticipantStatus) (int32, error)
	// ListWaitlisted orders by waitlist position, then join time.
	ListWaitlisted(ctx context.Context, activityID string) ([]domain.Participant, error)
	SetWaitlistPosition(ctx context.Context, id string, position int32) error
	ListByActivity(ctx context.Context, activityID string) ([]domain.Participant, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *domain.ParticipationEvent) error
	// ClaimPending leases up to limit undelivered events that are not claimed by
	// another dispatcher and have fewer than maxAttempts failed deliveries.
	ClaimPending(ctx context.Context, limit int, maxAttempts int32, lease time.Duration) ([]domain.ParticipationEvent, error)
	// Claim leases a single event. It reports false when the event is already
	// delivered or leased elsewhere.
	Claim(ctx context.Context, id string, lease time.Duration) (bool, error)
	MarkDispatched(ctx context.Context, id string) error
	// MarkFailed counts a failed attempt and releases the lease. Events that
	// another dispatcher already delivered are left untouched.
	MarkFailed(ctx context.Context, id string, reason string) error
	PurgeDispatched(ctx context.Context, before time.Time) (int64, error)
}

// Tx exposes repositories bound to one database transaction.
type Tx interface {
	Activities() ActivityRepository
	Profiles() ProfileRepository
	Participants() ParticipantRepository
	Outbox() OutboxRepository
}

// TxManager runs fn inside a transaction. fn may be invoked more than once when
// the transaction has to be retried, so it must not have side effects outside tx.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
