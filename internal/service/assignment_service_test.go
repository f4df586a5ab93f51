package service

import (
	"context"
	"testing"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
)

type assignmentEnv struct {
	*workflowEnv
	assignment *AssignmentService
}

func newAssignmentEnv(t *testing.T) *assignmentEnv {
	t.Helper()
	base := newWorkflowEnv(t)
	return &assignmentEnv{
		workflowEnv: base,
		assignment: NewAssignmentService(AssignmentDependencies{
			TicketRepo: base.tickets,
			LogRepo:    base.logs,
			UserRepo:   base.users,
			Tx:         &memTx{},
			Dispatcher: base.dispatcher,
			Now:        fixedClock(baseTime),
		}),
	}
}

func (env *assignmentEnv) approvedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket := env.createTicket(t, domain.UrgencyMedium)
	if _, err := env.service.UpdateStatus(env.ctx, ticket.ID, env.admin, domain.TicketStatusApproved, "", false); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return ticket
}

func TestAssignHappyPath(t *testing.T) {
	env := newAssignmentEnv(t)
	ticket := env.approvedTicket(t)

	var assignedEvents []events.Event
	env.dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, event events.Event) error {
		assignedEvents = append(assignedEvents, event)
		return nil
	})

	updated, err := env.assignment.Assign(env.ctx, ticket.ID, env.tech.ID, env.admin, "take this one")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.Status != domain.TicketStatusAssigned {
		t.Fatalf("status = %s, want ASSIGNED", updated.Status)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != env.tech.ID {
		t.Fatalf("assignee = %v, want %s", updated.AssigneeID, env.tech.ID)
	}

	// Assignee and status land together; the stored row never shows
	// ASSIGNED without an assignee.
	stored, _ := env.tickets.GetByID(env.ctx, ticket.ID)
	if stored.Status != domain.TicketStatusAssigned || stored.AssigneeID == nil {
		t.Fatalf("stored ticket = %+v", stored)
	}

	logs, _ := env.logs.ListByTicket(env.ctx, ticket.ID)
	last := logs[len(logs)-1]
	if last.NewStatus != domain.TicketStatusAssigned || last.Note == nil || *last.Note != "take this one" {
		t.Fatalf("last log = %+v", last)
	}

	if len(assignedEvents) != 1 {
		t.Fatalf("assigned events = %d, want 1", len(assignedEvents))
	}
	payload, ok := assignedEvents[0].Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeID != env.tech.ID {
		t.Fatalf("payload = %+v", assignedEvents[0].Payload)
	}
}

func TestAssignRequiresApprovedStatus(t *testing.T) {
	env := newAssignmentEnv(t)
	ticket := env.createTicket(t, domain.UrgencyMedium)

	_, err := env.assignment.Assign(env.ctx, ticket.ID, env.tech.ID, env.admin, "")
	if err == nil || statusCode(t, err) != 409 {
		t.Fatalf("assigning SUBMITTED ticket: expected 409, got %v", err)
	}
}

func TestAssignRejectsNonTechnicianAssignee(t *testing.T) {
	env := newAssignmentEnv(t)
	ticket := env.approvedTicket(t)

	_, err := env.assignment.Assign(env.ctx, ticket.ID, env.requester.ID, env.admin, "")
	if err == nil || statusCode(t, err) != 422 {
		t.Fatalf("assigning to requester: expected 422, got %v", err)
	}

	_, err = env.assignment.Assign(env.ctx, ticket.ID, "nobody", env.admin, "")
	if err == nil || statusCode(t, err) != 404 {
		t.Fatalf("assigning to unknown user: expected 404, got %v", err)
	}
}

func TestAssignAdminOnly(t *testing.T) {
	env := newAssignmentEnv(t)
	ticket := env.approvedTicket(t)

	_, err := env.assignment.Assign(env.ctx, ticket.ID, env.tech.ID, env.tech, "")
	if err == nil || statusCode(t, err) != 403 {
		t.Fatalf("technician assigning: expected 403, got %v", err)
	}
}

func TestFindBestAssigneePicksLeastLoaded(t *testing.T) {
	env := newAssignmentEnv(t)
	tech2 := env.seedUser("Second Tech", "tech2@campus.edu", domain.RoleTechnician)
	tech3 := env.seedUser("Third Tech", "tech3@campus.edu", domain.RoleTechnician)

	// Active counts: tech 3, tech2 1, tech3 1. RESOLVED and CLOSED work
	// does not count against a technician.
	env.seedAssigned(t, env.tech.ID, domain.TicketStatusAssigned)
	env.seedAssigned(t, env.tech.ID, domain.TicketStatusInProgress)
	env.seedAssigned(t, env.tech.ID, domain.TicketStatusAssigned)
	env.seedAssigned(t, env.tech.ID, domain.TicketStatusResolved)
	env.seedAssigned(t, tech2.ID, domain.TicketStatusAssigned)
	env.seedAssigned(t, tech2.ID, domain.TicketStatusClosed)
	env.seedAssigned(t, tech3.ID, domain.TicketStatusInProgress)

	best, err := env.assignment.FindBestAssignee(env.ctx)
	if err != nil {
		t.Fatalf("find best: %v", err)
	}
	// tech2 and tech3 tie on one active ticket each; the earlier-created
	// technician wins.
	if best == nil || best.ID != tech2.ID {
		t.Fatalf("best = %+v, want %s", best, tech2.ID)
	}
}

func TestFindBestAssigneeEmptyPool(t *testing.T) {
	base := newWorkflowEnv(t)
	users := newMemUsers()
	assignment := NewAssignmentService(AssignmentDependencies{
		TicketRepo: base.tickets,
		LogRepo:    base.logs,
		UserRepo:   users,
		Tx:         &memTx{},
	})

	best, err := assignment.FindBestAssignee(context.Background())
	if err != nil {
		t.Fatalf("find best: %v", err)
	}
	if best != nil {
		t.Fatalf("best = %+v, want nil", best)
	}
}

func (env *assignmentEnv) seedAssigned(t *testing.T, assigneeID string, status domain.TicketStatus) {
	t.Helper()
	ticket := &domain.Ticket{
		Title:      "seeded",
		Category:   domain.CategoryHVAC,
		Building:   "Annex",
		Status:     status,
		Urgency:    domain.UrgencyMedium,
		CreatorID:  env.requester.ID,
		AssigneeID: &assigneeID,
	}
	if err := env.tickets.Create(env.ctx, ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
}
