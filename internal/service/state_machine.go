package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// transitionKey identifies one row of the role-gated transition table.
type transitionKey struct {
	Role domain.Role
	From domain.TicketStatus
	To   domain.TicketStatus
}

// transitionRule carries the preconditions attached to a table row.
type transitionRule struct {
	// requiresAssignee demands the ticket already carry an assignee.
	requiresAssignee bool
	// requiresNote demands a non-empty note accompany the change.
	requiresNote bool
}

// transitionTable is the complete set of ordinary (non-override)
// transitions. Anything absent from this table is a Conflict.
var transitionTable = map[transitionKey]transitionRule{
	{domain.RoleAdmin, domain.TicketStatusSubmitted, domain.TicketStatusApproved}: {},
	{domain.RoleAdmin, domain.TicketStatusSubmitted, domain.TicketStatusRejected}: {},
	{domain.RoleAdmin, domain.TicketStatusApproved, domain.TicketStatusAssigned}:  {requiresAssignee: true},
	{domain.RoleAdmin, domain.TicketStatusResolved, domain.TicketStatusClosed}:    {},

	{domain.RoleTechnician, domain.TicketStatusAssigned, domain.TicketStatusInProgress}: {},
	{domain.RoleTechnician, domain.TicketStatusInProgress, domain.TicketStatusResolved}: {requiresNote: true},
}

// StateMachine validates and applies role-gated ticket transitions. It is
// stateless; all inputs arrive as arguments so the rule set can be tested
// without persistence.
type StateMachine struct{}

// Authorize checks whether the actor may move the ticket to target.
// The admin override flag bypasses the table but never the same-status
// rejection, and it is ignored for every other role.
func (StateMachine) Authorize(ticket *domain.Ticket, actor *domain.User, target domain.TicketStatus, note string, override bool) error {
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleTechnician:
		if ticket.AssigneeID == nil || *ticket.AssigneeID != actor.ID {
			return apperrors.NewForbidden("technicians can only update tickets assigned to them")
		}
	default:
		return apperrors.NewForbidden("only admins or technicians can update ticket status")
	}

	if ticket.Status == target {
		return apperrors.NewConflict(
			fmt.Sprintf("ticket is already in status %s", target),
			map[string]any{"current_status": ticket.Status})
	}

	if override && actor.Role == domain.RoleAdmin {
		return nil
	}

	rule, ok := transitionTable[transitionKey{actor.Role, ticket.Status, target}]
	if !ok {
		return apperrors.NewConflict(
			fmt.Sprintf("invalid transition from %s to %s", ticket.Status, target),
			map[string]any{"current_status": ticket.Status, "target_status": target})
	}
	if rule.requiresAssignee && ticket.AssigneeID == nil {
		return apperrors.NewUnprocessable(
			"ticket must have an assignee before moving to ASSIGNED",
			map[string]any{"target_status": target})
	}
	if rule.requiresNote && strings.TrimSpace(note) == "" {
		return apperrors.NewUnprocessable(
			"a work note is required when resolving a ticket",
			map[string]any{"target_status": target})
	}
	return nil
}

// Apply mutates the ticket's status and resolution timestamp, returning
// the previous status for the audit log. ResolvedAt is stamped when the
// ticket reaches RESOLVED and cleared when it regresses out of RESOLVED
// anywhere but CLOSED.
func (StateMachine) Apply(ticket *domain.Ticket, target domain.TicketStatus, now time.Time) domain.TicketStatus {
	old := ticket.Status
	ticket.Status = target
	if target == domain.TicketStatusResolved {
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	} else if old == domain.TicketStatusResolved && target != domain.TicketStatusClosed {
		ticket.ResolvedAt = nil
	}
	return old
}
