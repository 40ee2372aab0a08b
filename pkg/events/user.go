package events

import "time"

// Event type names carried in the envelope and as a message attribute.
const (
	TypeUserSynced  = "user.synced"
	TypeUserDeleted = "user.deleted"
)

// Envelope wraps every event published on a FocusNest topic.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// UserSynced describes the payload produced when a Clerk user is synchronized into the user store.
type UserSynced struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Roles       []string  `json:"roles"`
	Created     bool      `json:"created"`
	SyncedAt    time.Time `json:"syncedAt"`
}

// UserDeleted is emitted when a user is removed from the system.
type UserDeleted struct {
	UserID    string    `json:"userId"`
	DeletedAt time.Time `json:"deletedAt"`
}
