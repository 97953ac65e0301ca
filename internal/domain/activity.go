package domain

type ActivityStatus string

const (
	ActivityStatusDraft     ActivityStatus = "draft"
	ActivityStatusPublished ActivityStatus = "published"
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusCancelled ActivityStatus = "cancelled"
)

// Activity is owned by the activities module. The participation engine only
// reads it, and locks its row while changing the participant set.
type Activity struct {
	ID              string         `json:"id"`
	HostID          string         `json:"host_id"` // external user id of the host
	MaxParticipants int32          `json:"max_participants"`
	IsPublic        bool           `json:"is_public"`
	Status          ActivityStatus `json:"status"`
}

func (a *Activity) AcceptsParticipants() bool {
	return a.Status == ActivityStatusPublished
}

func (a *Activity) IsHost(externalUserID string) bool {
	return externalUserID != "" && a.HostID == externalUserID
}
