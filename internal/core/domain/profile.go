package domain

import (
	"strings"
	"time"
)

// Profile is the durable application record for a user, one per principal.
type Profile struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	Role        Role      `json:"role" bson:"role"`
	DisplayName string    `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Phone       string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Bio         string    `json:"bio,omitempty" bson:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ProfileDetails holds the user-editable fields. An update replaces all of
// them at once.
type ProfileDetails struct {
	DisplayName string
	Phone       string
	Bio         string
}

// DefaultDisplayName derives a display name from the local part of an email
// address.
func DefaultDisplayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

// ProfileEventType names a profile lifecycle event.
type ProfileEventType string

const (
	ProfileCreated     ProfileEventType = "profile.created"
	ProfileUpdated     ProfileEventType = "profile.updated"
	ProfileRoleChanged ProfileEventType = "profile.role_changed"
)

// ProfileEvent is emitted after a profile write has been persisted.
type ProfileEvent struct {
	Type       ProfileEventType `json:"type"`
	ProfileID  string           `json:"profile_id"`
	Role       Role             `json:"role"`
	OccurredAt time.Time        `json:"occurred_at"`
}
