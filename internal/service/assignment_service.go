package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// AssignmentService attaches technicians to approved tickets and picks
// the least-loaded technician for auto-assignment.
type AssignmentService struct {
	tickets    repository.TicketRepository
	logs       repository.TicketLogRepository
	users      repository.UserRepository
	tx         repository.TxRunner
	sm         StateMachine
	dispatcher events.Dispatcher
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	LogRepo    repository.TicketLogRepository
	UserRepo   repository.UserRepository
	Tx         repository.TxRunner
	Dispatcher events.Dispatcher
	Now        func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		logs:       deps.LogRepo,
		users:      deps.UserRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Assign sets the assignee and advances an APPROVED ticket to ASSIGNED
// through the state machine. Assignee, status and audit entry land in
// one commit so no reader ever observes ASSIGNED without an assignee.
func (s *AssignmentService) Assign(ctx context.Context, ticketID, assigneeID string, actor *domain.User, note string) (*domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fresh, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if fresh.Status != domain.TicketStatusApproved {
			return apperrors.NewConflict("ticket must be APPROVED before assignment",
				map[string]any{"current_status": fresh.Status})
		}

		assignee, err := s.users.GetByID(ctx, assigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("technician", map[string]any{"assignee_id": assigneeID})
			}
			return err
		}
		if assignee.Role != domain.RoleTechnician {
			return apperrors.NewUnprocessable("assignee must have TECHNICIAN role",
				map[string]any{"assignee_id": assigneeID, "role": assignee.Role})
		}

		fresh.AssigneeID = &assignee.ID
		if err := s.sm.Authorize(fresh, actor, domain.TicketStatusAssigned, note, false); err != nil {
			return err
		}
		old := s.sm.Apply(fresh, domain.TicketStatusAssigned, s.now())
		if err := s.tickets.Update(ctx, fresh); err != nil {
			return err
		}
		logNote := notePtr(note)
		if logNote == nil {
			logNote = notePtr("Ticket assigned")
		}
		if err := s.logs.Create(ctx, &domain.TicketLog{
			TicketID:  fresh.ID,
			OldStatus: &old,
			NewStatus: domain.TicketStatusAssigned,
			ActorID:   actor.ID,
			Note:      logNote,
		}); err != nil {
			return err
		}
		ticket = fresh
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			Title:      ticket.Title,
			AssigneeID: *ticket.AssigneeID,
			CreatorID:  ticket.CreatorID,
		},
	})
	return ticket, nil
}

// FindBestAssignee selects the technician with the fewest active tickets,
// breaking ties by earliest creation. A nil result with nil error means
// the technician pool is empty; callers treat that as a soft failure.
func (s *AssignmentService) FindBestAssignee(ctx context.Context) (*domain.User, error) {
	technicians, err := s.users.ListByRole(ctx, domain.RoleTechnician)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(technicians) == 0 {
		return nil, nil
	}

	var best *domain.User
	bestCount := 0
	for i := range technicians {
		count, err := s.tickets.CountActiveByAssignee(ctx, technicians[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		// Strict less-than keeps the earliest-created technician on ties;
		// ListByRole orders by creation time.
		if best == nil || count < bestCount {
			best = &technicians[i]
			bestCount = count
		}
	}
	return best, nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
