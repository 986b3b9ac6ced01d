package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification log entry for a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	RefType   string    `json:"ref_type,omitempty"` // e.g. "live_class"
	RefID     string    `json:"ref_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
