package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusSubmitted  TicketStatus = "SUBMITTED"
	TicketStatusApproved   TicketStatus = "APPROVED"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusRejected   TicketStatus = "REJECTED"
)

// OpenStatuses are the states in which a ticket still needs work.
// REJECTED and CLOSED are terminal.
var OpenStatuses = []TicketStatus{
	TicketStatusSubmitted,
	TicketStatusApproved,
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// IsOpen reports whether the status counts as open for escalation
// and duplicate detection.
func (s TicketStatus) IsOpen() bool {
	switch s {
	case TicketStatusSubmitted, TicketStatusApproved, TicketStatusAssigned, TicketStatusInProgress:
		return true
	}
	return false
}

// IsValid reports whether the value is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusSubmitted, TicketStatusApproved, TicketStatusAssigned,
		TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed, TicketStatusRejected:
		return true
	}
	return false
}

// TicketCategory enumerates the kinds of facility issues users can report.
type TicketCategory string

const (
	CategoryElectrical TicketCategory = "ELECTRICAL"
	CategoryPlumbing   TicketCategory = "PLUMBING"
	CategoryHVAC       TicketCategory = "HVAC"
	CategoryIT         TicketCategory = "IT"
	CategoryCleaning   TicketCategory = "CLEANING"
	CategorySafety     TicketCategory = "SAFETY"
	CategoryStructural TicketCategory = "STRUCTURAL"
	CategoryFurniture  TicketCategory = "FURNITURE"
)

// IsValid reports whether the value is a known category.
func (c TicketCategory) IsValid() bool {
	switch c {
	case CategoryElectrical, CategoryPlumbing, CategoryHVAC, CategoryIT,
		CategoryCleaning, CategorySafety, CategoryStructural, CategoryFurniture:
		return true
	}
	return false
}

// UrgencyLevel drives SLA deadlines. Escalation only ever moves a ticket
// toward CRITICAL; levels are never lowered automatically.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// IsValid reports whether the value is a known urgency level.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Bump returns the next urgency tier. CRITICAL is a fixed point.
func (u UrgencyLevel) Bump() UrgencyLevel {
	switch u {
	case UrgencyLow:
		return UrgencyMedium
	case UrgencyMedium:
		return UrgencyHigh
	default:
		return UrgencyCritical
	}
}

// Ticket is the aggregate for a single maintenance request.
//
// CreatorID and AssigneeID are weak references into the user directory;
// the ticket never owns the users it points at.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Building    string
	Location    string
	Status      TicketStatus
	Urgency     UrgencyLevel
	CreatorID   string
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}
