package types

import "time"

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	NotificationAnswer   NotificationType = "answer"
	NotificationComment  NotificationType = "comment"
	NotificationMention  NotificationType = "mention"
	NotificationAccepted NotificationType = "accepted"
)

// Notification is a message queued for a specific user.
type Notification struct {
	// ID is the unique identifier of the notification.
	ID string `json:"id"`

	// UserID identifies the recipient.
	UserID string `json:"user_id"`

	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
	IsRead  bool             `json:"is_read"`

	// CreatedAt is assigned when the notification is appended.
	CreatedAt time.Time `json:"created_at"`

	// RelatedID optionally points at the question the notification is about.
	RelatedID string `json:"related_id,omitempty"`
}
