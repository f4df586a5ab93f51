package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
	"github.com/spec-kit/campus-maintenance/internal/observability"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// EscalationService detects SLA breaches on open tickets and bumps their
// urgency one tier. It is the only mutation path that changes urgency
// after creation, and it never touches status.
type EscalationService struct {
	tickets    repository.TicketRepository
	tx         repository.TxRunner
	checker    *SLAChecker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	TicketRepo repository.TicketRepository
	Tx         repository.TxRunner
	Checker    *SLAChecker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		tickets:    deps.TicketRepo,
		tx:         deps.Tx,
		checker:    deps.Checker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// RunOnce performs a single idempotent sweep: every open, breached,
// non-CRITICAL ticket gets its urgency bumped one tier in its own
// transaction. One ticket's failure never aborts the rest. CRITICAL
// tickets are a fixed point and produce no further notifications.
func (s *EscalationService) RunOnce(ctx context.Context) (int, error) {
	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	escalated := 0
	failed := 0
	for i := range open {
		candidate := &open[i]
		if candidate.Urgency == domain.UrgencyCritical || !s.checker.IsBreached(candidate) {
			continue
		}

		bumped, err := s.escalateTicket(ctx, candidate.ID)
		if err != nil {
			failed++
			s.logger.Error("escalation failed",
				zap.String("ticket_id", candidate.ID),
				zap.Error(err))
			continue
		}
		if bumped != nil {
			escalated++
			s.publish(ctx, *bumped)
		}
	}

	s.metrics.RecordSweep(escalated, failed)
	if escalated > 0 {
		s.logger.Info("escalated tickets after SLA breach", zap.Int("count", escalated))
	}
	return escalated, nil
}

// escalateTicket re-reads the ticket under a row lock and bumps it if the
// breach still holds, so a sweep never clobbers a concurrent transition.
func (s *EscalationService) escalateTicket(ctx context.Context, ticketID string) (*events.Event, error) {
	var event *events.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fresh, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if !fresh.Status.IsOpen() || fresh.Urgency == domain.UrgencyCritical || !s.checker.IsBreached(fresh) {
			return nil
		}

		old := fresh.Urgency
		fresh.Urgency = old.Bump()
		if err := s.tickets.Update(ctx, fresh); err != nil {
			return err
		}
		event = &events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketEscalated,
			TicketID:  fresh.ID,
			ActorID:   "",
			Timestamp: s.checker.now(),
			Payload: events.TicketEscalatedPayload{
				Title:      fresh.Title,
				OldUrgency: old,
				NewUrgency: fresh.Urgency,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// BreachCounts tallies breached tickets per urgency tier, counting open
// tickets past deadline and resolved tickets that finished late.
func (s *EscalationService) BreachCounts(ctx context.Context) (map[domain.UrgencyLevel]int, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts := make(map[domain.UrgencyLevel]int)
	for i := range tickets {
		if s.checker.IsBreached(&tickets[i]) {
			counts[tickets[i].Urgency]++
		}
	}
	return counts, nil
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
