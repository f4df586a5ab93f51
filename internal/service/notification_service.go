package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// NotificationService is the engine's notification sink. Delivery is
// fire-and-forget: failures are logged and never surface to the
// workflow that triggered them.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		logger:        logger,
		cfg:           cfg,
	}
}

// Notify persists one inbox entry for the user. Errors are logged, not
// returned.
func (n *NotificationService) Notify(ctx context.Context, userID, title, body string, ntype domain.NotificationType, linkURL string) {
	notification := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Body:    body,
		Type:    ntype,
		LinkURL: linkURL,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("failed to store notification",
			zap.String("user_id", userID),
			zap.String("type", string(ntype)),
			zap.Error(err))
	}
	n.sendEmailStub(notification)
	n.sendWebhookStub(notification)
}

// RegisterHandlers subscribes the notification fan-out to domain events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketRated, n.handleTicketRated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.notifyAdmins(ctx, event,
		"New maintenance request",
		fmt.Sprintf("%q was submitted for %s (%s).", payload.Title, payload.Building, payload.Category),
		domain.NotificationTicketCreated)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.Notify(ctx, payload.CreatorID,
		fmt.Sprintf("Ticket %s", payload.NewStatus),
		fmt.Sprintf("%q moved from %s to %s.", payload.Title, payload.OldStatus, payload.NewStatus),
		domain.NotificationStatusChanged,
		ticketLink(event.TicketID))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.Notify(ctx, payload.AssigneeID,
		"Ticket assigned to you",
		fmt.Sprintf("%q is now yours to work on.", payload.Title),
		domain.NotificationAssigned,
		ticketLink(event.TicketID))
	return nil
}

// handleTicketEscalated fans one escalation out to every admin. Since
// the sweeper only escalates on a tier change and CRITICAL is never
// bumped again, admins are notified at most once per tier.
func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	n.notifyAdmins(ctx, event,
		"SLA breach: urgency escalated",
		fmt.Sprintf("%q breached its SLA. Urgency escalated from %s to %s.",
			payload.Title, payload.OldUrgency, payload.NewUrgency),
		domain.NotificationSLABreach)
	return nil
}

func (n *NotificationService) handleTicketRated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRatedPayload)
	if !ok || payload.AssigneeID == "" {
		return nil
	}
	n.Notify(ctx, payload.AssigneeID,
		"Your work was rated",
		fmt.Sprintf("%q received a %d-star rating.", payload.Title, payload.Stars),
		domain.NotificationTicketRated,
		ticketLink(event.TicketID))
	return nil
}

func (n *NotificationService) notifyAdmins(ctx context.Context, event events.Event, title, body string, ntype domain.NotificationType) {
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		n.logger.Warn("failed to load admins for notification",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return
	}
	for i := range admins {
		n.Notify(ctx, admins[i].ID, title, body, ntype, ticketLink(event.TicketID))
	}
}

// ListForUser returns the actor's inbox, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, actor *domain.User) ([]domain.Notification, error) {
	result, err := n.notifications.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// UnreadCount returns how many unread entries the actor has.
func (n *NotificationService) UnreadCount(ctx context.Context, actor *domain.User) (int, error) {
	count, err := n.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// MarkRead marks one of the actor's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, id string, actor *domain.User) error {
	if err := n.notifications.MarkRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead clears the actor's unread entries.
func (n *NotificationService) MarkAllRead(ctx context.Context, actor *domain.User) error {
	return apperrors.MapError(n.notifications.MarkAllRead(ctx, actor.ID))
}

func (n *NotificationService) sendEmailStub(notification *domain.Notification) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("user_id", notification.UserID),
		zap.String("type", string(notification.Type)))
}

func (n *NotificationService) sendWebhookStub(notification *domain.Notification) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", notification.UserID),
		zap.String("type", string(notification.Type)))
}

func ticketLink(ticketID string) string {
	return "/tickets/" + ticketID
}
