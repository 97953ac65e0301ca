package domain

import "time"

type ParticipantStatus string

const (
	ParticipantStatusPending    ParticipantStatus = "pending"
	ParticipantStatusConfirmed  ParticipantStatus = "confirmed"
	ParticipantStatusWaitlisted ParticipantStatus = "waitlisted"
	ParticipantStatusCancelled  ParticipantStatus = "cancelled"
)

// Participant is one user's participation in one activity. Rows are never
// deleted; cancelled is terminal and a later join reuses the row.
type Participant struct {
	ID               string            `json:"id"`
	ActivityID       string            `json:"activity_id"`
	ProfileID        string            `json:"profile_id"`
	ExternalUserID   string            `json:"external_user_id"` // hydrated from user_profiles
	Status           ParticipantStatus `json:"status"`
	WaitlistPosition *int32            `json:"waitlist_position,omitempty"` // set iff waitlisted
	ApprovalMessage  *string           `json:"approval_message,omitempty"`
	InviteCode       *string           `json:"invite_code,omitempty"`
	JoinedAt         *time.Time        `json:"joined_at,omitempty"`
	ApprovedAt       *time.Time        `json:"approved_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (p *Participant) IsActive() bool {
	return p.Status != ParticipantStatusCancelled
}

// ParticipantSummary is what callers of the engine get back.
type ParticipantSummary struct {
	ID               string            `json:"id"`
	ProfileID        string            `json:"profile_id"`
	ExternalUserID   string            `json:"external_user_id"`
	Status           ParticipantStatus `json:"status"`
	WaitlistPosition *int32            `json:"waitlist_position"`
	ApprovalMessage  *string           `json:"approval_message"`
	JoinedAt         *time.Time        `json:"joined_at"`
	ApprovedAt       *time.Time        `json:"approved_at"`
	CancelledAt      *time.Time        `json:"cancelled_at"`
}

func (p *Participant) Summary() ParticipantSummary {
	return ParticipantSummary{
		ID:               p.ID,
		ProfileID:        p.ProfileID,
		ExternalUserID:   p.ExternalUserID,
		Status:           p.Status,
		WaitlistPosition: p.WaitlistPosition,
		ApprovalMessage:  p.ApprovalMessage,
		JoinedAt:         p.JoinedAt,
		ApprovedAt:       p.ApprovedAt,
		CancelledAt:      p.CancelledAt,
	}
}

// JoinOptions carries the optional fields of a join request.
type JoinOptions struct {
	Message    *string `json:"message,omitempty"`
	InviteCode *string `json:"invite_code,omitempty"`
}

type ModerationAction string

const (
	ModerationActionApprove ModerationAction = "approve"
	ModerationActionReject  ModerationAction = "reject"
)

type ModerationDecision struct {
	Action  ModerationAction `json:"action"`
	Message *string          `json:"message,omitempty"`
}
