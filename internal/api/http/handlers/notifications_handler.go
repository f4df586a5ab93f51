package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-maintenance/internal/api/dto"
	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/service"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// NotificationsHandler exposes the per-user inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notifications, err := h.service.ListForUser(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(notifications)})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.service.UnreadCount(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Unread: count}})
}

// MarkRead PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.MarkRead(c.Context(), c.Params("id"), actor); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.MarkAllRead(c.Context(), actor); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

func notificationResponses(notifications []domain.Notification) []dto.NotificationResponse {
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		items = append(items, dto.NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Type:      n.Type,
			LinkURL:   n.LinkURL,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return items
}
