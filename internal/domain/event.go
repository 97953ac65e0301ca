package domain

import "time"

type EventType string

const (
	EventTypeJoined          EventType = "activity.joined"
	EventTypeWaitlisted      EventType = "activity.waitlisted"
	EventTypeApprovalPending EventType = "activity.approval_pending"
	EventTypeCancelled       EventType = "activity.cancelled"
	EventTypePromoted        EventType = "activity.promoted"
	EventTypeApproved        EventType = "activity.approved"
	EventTypeRejected        EventType = "activity.rejected"
)

// ParticipationEvent is an outbox record. It is written in the same transaction
// as the transition it describes and delivered after commit; ID is the
// deduplication key for at-least-once delivery.
type ParticipationEvent struct {
	ID            string         `json:"id"`
	ActivityID    string         `json:"activity_id"`
	ParticipantID string         `json:"participant_id"`
	UserID        string         `json:"user_id"`
	Type          EventType      `json:"type"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ClaimedUntil  *time.Time     `json:"-"`
	Attempts      int32          `json:"-"`
	LastError     string         `json:"-"`
	DispatchedAt  *time.Time     `json:"-"`
}
