package domain

import "time"

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	NotificationTicketCreated NotificationType = "TICKET_CREATED"
	NotificationStatusChanged NotificationType = "STATUS_CHANGED"
	NotificationAssigned      NotificationType = "ASSIGNED"
	NotificationSLABreach     NotificationType = "SLA_BREACH"
	NotificationTicketRated   NotificationType = "TICKET_RATED"
)

// Notification is a per-user inbox entry. Delivery is fire-and-forget:
// the workflow never waits on, or fails because of, a notification.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Type      NotificationType
	LinkURL   string
	Read      bool
	CreatedAt time.Time
}
