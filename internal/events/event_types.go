package events

import (
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketRated         EventType = "ticket_rated"
)

// Event represents a domain event emitted by services. Handlers run off
// the mutation path; publishing never blocks or fails a workflow commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Category  domain.TicketCategory `json:"category"`
	Building  string                `json:"building"`
	Urgency   domain.UrgencyLevel   `json:"urgency"`
	CreatorID string                `json:"creator_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Title     string              `json:"title"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	CreatorID string              `json:"creator_id"`
	Note      string              `json:"note,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Title      string `json:"title"`
	AssigneeID string `json:"assignee_id"`
	CreatorID  string `json:"creator_id"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Title      string              `json:"title"`
	OldUrgency domain.UrgencyLevel `json:"old_urgency"`
	NewUrgency domain.UrgencyLevel `json:"new_urgency"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Title      string `json:"title"`
	Stars      int    `json:"stars"`
	AssigneeID string `json:"assignee_id,omitempty"`
}
