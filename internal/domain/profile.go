package domain

// Contact is the subset of a user profile needed to reach the user outside the app.
type Contact struct {
	ExternalUserID string `json:"external_user_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
}
