package domain

import "time"

// TicketLog is an append-only audit entry recording one status change.
// OldStatus is nil only for the submission entry. Replaying a ticket's
// log sequence in order reconstructs its current status exactly.
type TicketLog struct {
	ID        string
	TicketID  string
	OldStatus *TicketStatus
	NewStatus TicketStatus
	ActorID   string
	Note      *string
	CreatedAt time.Time
}
