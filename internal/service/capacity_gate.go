package service

import "github.com/Outercircl-dev/backend/internal/domain"

// ModerationCapability reports whether an activity's host may hold joins for
// approval. Membership tier policy is plugged in here.
type ModerationCapability func(activity *domain.Activity) bool

// AllowModeration grants moderation to every host.
func AllowModeration(*domain.Activity) bool { return true }

// DenyModeration makes private activities follow the public capacity rules.
func DenyModeration(*domain.Activity) bool { return false }

// Occupancy is the participant count of an activity read inside the
// transaction that holds the activity lock.
type Occupancy struct {
	Confirmed  int32
	Waitlisted int32
}

type Placement struct {
	Status           domain.ParticipantStatus
	WaitlistPosition *int32
}

// CapacityGate decides where a join lands and whether an approval fits.
type CapacityGate struct {
	moderation ModerationCapability
}

func NewCapacityGate(moderation ModerationCapability) *CapacityGate {
	if moderation == nil {
		moderation = AllowModeration
	}
	return &CapacityGate{moderation: moderation}
}

// Admit rejects joins the activity cannot take regardless of occupancy.
func (g *CapacityGate) Admit(activity *domain.Activity, externalUserID string) error {
	if activity.IsHost(externalUserID) {
		return domain.BadRequest("hosts cannot join their own activity")
	}
	if !activity.AcceptsParticipants() {
		return domain.BadRequest("activity is not accepting participants")
	}
	return nil
}

func (g *CapacityGate) Moderated(activity *domain.Activity) bool {
	return !activity.IsPublic && g.moderation(activity)
}

func (g *CapacityGate) Place(activity *domain.Activity, occ Occupancy) Placement {
	switch {
	case g.Moderated(activity):
		return Placement{Status: domain.ParticipantStatusPending}
	case occ.Confirmed >= activity.MaxParticipants:
		pos := occ.Waitlisted + 1
		return Placement{Status: domain.ParticipantStatusWaitlisted, WaitlistPosition: &pos}
	default:
		return Placement{Status: domain.ParticipantStatusConfirmed}
	}
}

// CheckApproval is the capacity half of the gate, applied when a host
// approves a pending participant.
func (g *CapacityGate) CheckApproval(activity *domain.Activity, confirmed int32) error {
	if confirmed >= activity.MaxParticipants {
		return domain.BadRequest("activity is already at capacity")
	}
	return nil
}
