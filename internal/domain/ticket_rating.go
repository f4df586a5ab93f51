package domain

import "time"

// TicketRating captures the requester's verdict on a finished ticket.
// At most one rating exists per ticket and it is immutable once created.
type TicketRating struct {
	ID        string
	TicketID  string
	RatedBy   string
	Stars     int
	Comment   *string
	CreatedAt time.Time
}
