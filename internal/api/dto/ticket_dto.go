package dto

import (
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Building    string                `json:"building"`
	Location    string                `json:"location"`
	Urgency     domain.UrgencyLevel   `json:"urgency"`
}

// CheckDuplicatesRequest payload.
type CheckDuplicatesRequest struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Building string                `json:"building"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status   domain.TicketStatus `json:"status"`
	Note     string              `json:"note"`
	Override bool                `json:"override"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
	Note       string `json:"note"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// TicketResponse is the canonical ticket representation.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Building    string                `json:"building"`
	Location    string                `json:"location"`
	Status      domain.TicketStatus   `json:"status"`
	Urgency     domain.UrgencyLevel   `json:"urgency"`
	CreatorID   string                `json:"creator_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
}

// TicketLogResponse is one audit trail entry.
type TicketLogResponse struct {
	ID        string               `json:"id"`
	OldStatus *domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus  `json:"new_status"`
	ActorID   string               `json:"actor_id"`
	Note      *string              `json:"note"`
	CreatedAt time.Time            `json:"created_at"`
}

// TicketRatingResponse is the requester feedback entry.
type TicketRatingResponse struct {
	ID        string    `json:"id"`
	Stars     int       `json:"stars"`
	Comment   *string   `json:"comment"`
	RatedBy   string    `json:"rated_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse bundles a ticket with its history and rating.
type TicketDetailResponse struct {
	Ticket       TicketResponse        `json:"ticket"`
	Logs         []TicketLogResponse   `json:"logs"`
	Rating       *TicketRatingResponse `json:"rating"`
	CreatorName  string                `json:"creator_name,omitempty"`
	AssigneeName string                `json:"assignee_name,omitempty"`
}

// AutoAssignResponse reports the outcome of an auto-assignment attempt.
type AutoAssignResponse struct {
	Assigned bool            `json:"assigned"`
	Message  string          `json:"message,omitempty"`
	Ticket   *TicketResponse `json:"ticket,omitempty"`
}
