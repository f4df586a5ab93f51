package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// TicketService is the workflow root: it composes the state machine,
// repositories and dispatcher to implement create, transition and rate.
type TicketService struct {
	tickets repository.TicketRepository
	logs    repository.TicketLogRepository
	ratings repository.TicketRatingRepository
	users   repository.UserRepository
	tx      repository.TxRunner
	sm      StateMachine
	// Dispatcher is optional; a nil dispatcher silently drops events.
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the workflow service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	LogRepo    repository.TicketLogRepository
	RatingRepo repository.TicketRatingRepository
	UserRepo   repository.UserRepository
	Tx         repository.TxRunner
	Dispatcher events.Dispatcher
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		logs:       deps.LogRepo,
		ratings:    deps.RatingRepo,
		users:      deps.UserRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Building    string
	Location    string
	Urgency     domain.UrgencyLevel
}

// CreateTicket records a new request in SUBMITTED, together with its
// first audit entry, in one commit.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleRequester); err != nil {
		return nil, err
	}
	if !input.Category.IsValid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if !input.Urgency.IsValid() {
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": input.Urgency})
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Building:    strings.TrimSpace(input.Building),
		Location:    strings.TrimSpace(input.Location),
		Status:      domain.TicketStatusSubmitted,
		Urgency:     input.Urgency,
		CreatorID:   actor.ID,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Create(ctx, &domain.TicketLog{
			TicketID:  ticket.ID,
			OldStatus: nil,
			NewStatus: domain.TicketStatusSubmitted,
			ActorID:   actor.ID,
			Note:      notePtr("Ticket submitted"),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Category:  ticket.Category,
			Building:  ticket.Building,
			Urgency:   ticket.Urgency,
			CreatorID: ticket.CreatorID,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets matching the admin filter.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListMyTickets returns the requester's own tickets.
func (s *TicketService) ListMyTickets(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleRequester); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{CreatorID: &actor.ID, Limit: 200})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAssignedTickets returns the technician's current workload.
func (s *TicketService) ListAssignedTickets(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleTechnician); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{AssigneeID: &actor.ID, Limit: 200})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// TicketDetail bundles a ticket with its audit history, rating, and the
// people involved. Creator and Assignee are nil when the directory entry
// no longer exists.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Logs     []domain.TicketLog
	Rating   *domain.TicketRating
	Creator  *domain.User
	Assignee *domain.User
}

// GetTicketDetail fetches a ticket plus logs and rating, enforcing the
// caller's relationship to it.
func (s *TicketService) GetTicketDetail(ctx context.Context, ticketID string, actor *domain.User) (*TicketDetail, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ensureAccess(ticket, actor); err != nil {
		return nil, err
	}

	logs, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	rating, err := s.ratings.GetByTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	detail := &TicketDetail{Ticket: ticket, Logs: logs, Rating: rating}
	if creator, err := s.users.GetByID(ctx, ticket.CreatorID); err == nil {
		detail.Creator = creator
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if ticket.AssigneeID != nil {
		if assignee, err := s.users.GetByID(ctx, *ticket.AssigneeID); err == nil {
			detail.Assignee = assignee
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	return detail, nil
}

// GetLogs returns the audit trail for a ticket the actor may see.
func (s *TicketService) GetLogs(ctx context.Context, ticketID string, actor *domain.User) ([]domain.TicketLog, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ensureAccess(ticket, actor); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return logs, nil
}

// UpdateStatus runs one role-gated transition. The status change and its
// audit entry commit together; the row lock taken inside the transaction
// serializes concurrent transitions on the same ticket.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, actor *domain.User, target domain.TicketStatus, note string, override bool) (*domain.Ticket, error) {
	if !target.IsValid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}

	var ticket *domain.Ticket
	var oldStatus domain.TicketStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fresh, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if err := s.sm.Authorize(fresh, actor, target, note, override); err != nil {
			return err
		}
		oldStatus = s.sm.Apply(fresh, target, s.now())
		if err := s.tickets.Update(ctx, fresh); err != nil {
			return err
		}
		if err := s.logs.Create(ctx, &domain.TicketLog{
			TicketID:  fresh.ID,
			OldStatus: &oldStatus,
			NewStatus: target,
			ActorID:   actor.ID,
			Note:      notePtr(note),
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
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			Title:     ticket.Title,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			CreatorID: ticket.CreatorID,
			Note:      strings.TrimSpace(note),
		},
	})
	return ticket, nil
}

// RateTicket records the requester's one-time verdict on a finished ticket.
func (s *TicketService) RateTicket(ctx context.Context, ticketID string, actor *domain.User, stars int, comment string) (*domain.TicketRating, error) {
	if err := requireRole(actor, domain.RoleRequester); err != nil {
		return nil, err
	}
	if stars < 1 || stars > 5 {
		return nil, apperrors.NewValidationError("stars must be between 1 and 5", map[string]any{"stars": stars})
	}

	rating := &domain.TicketRating{
		TicketID: ticketID,
		RatedBy:  actor.ID,
		Stars:    stars,
	}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		rating.Comment = &trimmed
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
		if fresh.CreatorID != actor.ID {
			return apperrors.NewForbidden("requesters can only rate their own tickets")
		}
		if fresh.Status != domain.TicketStatusResolved && fresh.Status != domain.TicketStatusClosed {
			return apperrors.NewConflict("only RESOLVED or CLOSED tickets can be rated",
				map[string]any{"current_status": fresh.Status})
		}
		exists, err := s.ratings.ExistsByTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.NewConflict("ticket has already been rated", nil)
		}
		ticket = fresh
		return s.ratings.Create(ctx, rating)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	payload := events.TicketRatedPayload{Title: ticket.Title, Stars: stars}
	if ticket.AssigneeID != nil {
		payload.AssigneeID = *ticket.AssigneeID
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  payload,
	})
	return rating, nil
}

func (s *TicketService) requireTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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

// ensureAccess gates read access: admins see everything, requesters see
// their own tickets, technicians see tickets assigned to them.
func ensureAccess(ticket *domain.Ticket, actor *domain.User) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleRequester:
		if ticket.CreatorID == actor.ID {
			return nil
		}
	case domain.RoleTechnician:
		if ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID {
			return nil
		}
	}
	return apperrors.NewForbidden("you do not have access to this ticket")
}

func requireRole(actor *domain.User, required domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != required {
		return apperrors.NewForbidden(fmt.Sprintf("role %s is required", required))
	}
	return nil
}

func notePtr(note string) *string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
