package notification

import "time"

// Notification is a message for a platform actor
type Notification struct {
	ID                string    `json:"id"`
	RecipientID       string    `json:"recipient_id"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"` // e.g., "TRANSACTION", "INVITATION"
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EntityType names what a notification refers to
type EntityType string

const (
	EntityTransaction EntityType = "TRANSACTION"
	EntityInvitation  EntityType = "INVITATION"
)
