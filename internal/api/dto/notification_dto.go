package dto

import (
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Type      domain.NotificationType `json:"type"`
	LinkURL   string                  `json:"link_url,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

// UnreadCountResponse reports the unread inbox size.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
