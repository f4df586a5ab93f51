package service

import (
	"context"
	"testing"

	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/events"
)

type notificationEnv struct {
	ctx        context.Context
	store      *memNotifications
	users      *memUsers
	dispatcher events.Dispatcher
	service    *NotificationService
}

func newNotificationEnv(t *testing.T) *notificationEnv {
	t.Helper()
	env := &notificationEnv{
		ctx:        context.Background(),
		store:      newMemNotifications(),
		users:      newMemUsers(),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	env.service = NewNotificationService(env.store, env.users, env.dispatcher, nil, config.NotificationConfig{})
	env.service.RegisterHandlers()
	return env
}

func (env *notificationEnv) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{Name: "User", Email: email, Role: role}
	if err := env.users.Create(env.ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestTicketCreatedNotifiesEveryAdmin(t *testing.T) {
	env := newNotificationEnv(t)
	admin1 := env.seedUser(t, "a1@campus.edu", domain.RoleAdmin)
	admin2 := env.seedUser(t, "a2@campus.edu", domain.RoleAdmin)
	requester := env.seedUser(t, "r@campus.edu", domain.RoleRequester)

	err := env.dispatcher.Publish(env.ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "ticket-1",
		ActorID:  requester.ID,
		Payload: events.TicketCreatedPayload{
			Title:     "Broken window",
			Category:  domain.CategorySafety,
			Building:  "Dorm A",
			Urgency:   domain.UrgencyHigh,
			CreatorID: requester.ID,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, admin := range []*domain.User{admin1, admin2} {
		inbox, _ := env.store.ListByUser(env.ctx, admin.ID)
		if len(inbox) != 1 {
			t.Fatalf("admin %s inbox size = %d, want 1", admin.ID, len(inbox))
		}
		if inbox[0].Type != domain.NotificationTicketCreated {
			t.Fatalf("type = %s", inbox[0].Type)
		}
		if inbox[0].LinkURL != "/tickets/ticket-1" {
			t.Fatalf("link = %q", inbox[0].LinkURL)
		}
	}
	requesterInbox, _ := env.store.ListByUser(env.ctx, requester.ID)
	if len(requesterInbox) != 0 {
		t.Fatalf("requester inbox size = %d, want 0", len(requesterInbox))
	}
}

func TestStatusChangeNotifiesCreator(t *testing.T) {
	env := newNotificationEnv(t)
	requester := env.seedUser(t, "r@campus.edu", domain.RoleRequester)

	err := env.dispatcher.Publish(env.ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "ticket-1",
		Payload: events.TicketStatusChangedPayload{
			Title:     "Broken window",
			OldStatus: domain.TicketStatusSubmitted,
			NewStatus: domain.TicketStatusApproved,
			CreatorID: requester.ID,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	inbox, _ := env.store.ListByUser(env.ctx, requester.ID)
	if len(inbox) != 1 || inbox[0].Type != domain.NotificationStatusChanged {
		t.Fatalf("inbox = %+v", inbox)
	}
}

func TestAssignmentNotifiesAssignee(t *testing.T) {
	env := newNotificationEnv(t)
	tech := env.seedUser(t, "t@campus.edu", domain.RoleTechnician)

	err := env.dispatcher.Publish(env.ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: "ticket-1",
		Payload: events.TicketAssignedPayload{
			Title:      "Broken window",
			AssigneeID: tech.ID,
			CreatorID:  "req-1",
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	inbox, _ := env.store.ListByUser(env.ctx, tech.ID)
	if len(inbox) != 1 || inbox[0].Type != domain.NotificationAssigned {
		t.Fatalf("inbox = %+v", inbox)
	}
}

func TestRatingNotifiesAssignee(t *testing.T) {
	env := newNotificationEnv(t)
	tech := env.seedUser(t, "t@campus.edu", domain.RoleTechnician)

	err := env.dispatcher.Publish(env.ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: "ticket-1",
		Payload: events.TicketRatedPayload{
			Title:      "Broken window",
			Stars:      4,
			AssigneeID: tech.ID,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	inbox, _ := env.store.ListByUser(env.ctx, tech.ID)
	if len(inbox) != 1 || inbox[0].Type != domain.NotificationTicketRated {
		t.Fatalf("inbox = %+v", inbox)
	}

	// Never-assigned tickets produce no rating notification.
	err = env.dispatcher.Publish(env.ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: "ticket-2",
		Payload:  events.TicketRatedPayload{Title: "Leaky tap", Stars: 5},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	inbox, _ = env.store.ListByUser(env.ctx, tech.ID)
	if len(inbox) != 1 {
		t.Fatalf("inbox size after unassigned rating = %d, want 1", len(inbox))
	}
}

func TestInboxReadTracking(t *testing.T) {
	env := newNotificationEnv(t)
	user := env.seedUser(t, "u@campus.edu", domain.RoleRequester)

	env.service.Notify(env.ctx, user.ID, "one", "body", domain.NotificationStatusChanged, "")
	env.service.Notify(env.ctx, user.ID, "two", "body", domain.NotificationStatusChanged, "")

	count, err := env.service.UnreadCount(env.ctx, user)
	if err != nil || count != 2 {
		t.Fatalf("unread = %d (%v), want 2", count, err)
	}

	inbox, err := env.service.ListForUser(env.ctx, user)
	if err != nil || len(inbox) != 2 {
		t.Fatalf("inbox = %+v (%v)", inbox, err)
	}
	// Newest first.
	if inbox[0].Title != "two" {
		t.Fatalf("first entry = %q, want newest", inbox[0].Title)
	}

	if err := env.service.MarkRead(env.ctx, inbox[0].ID, user); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = env.service.UnreadCount(env.ctx, user)
	if count != 1 {
		t.Fatalf("unread after mark = %d, want 1", count)
	}

	if err := env.service.MarkRead(env.ctx, "missing", user); err == nil || statusCode(t, err) != 404 {
		t.Fatalf("mark missing: expected 404, got %v", err)
	}

	// Users cannot mark each other's notifications.
	other := env.seedUser(t, "o@campus.edu", domain.RoleRequester)
	if err := env.service.MarkRead(env.ctx, inbox[1].ID, other); err == nil || statusCode(t, err) != 404 {
		t.Fatalf("cross-user mark: expected 404, got %v", err)
	}

	if err := env.service.MarkAllRead(env.ctx, user); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	count, _ = env.service.UnreadCount(env.ctx, user)
	if count != 0 {
		t.Fatalf("unread after mark all = %d, want 0", count)
	}
}
