package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/service"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// AnalyticsHandler exposes admin dashboards and the public summary.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: analyticsService}
}

// Summary GET /analytics/summary.
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.Summary(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// ResolutionTime GET /analytics/resolution-time.
func (h *AnalyticsHandler) ResolutionTime(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.service.ResolutionTime(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// SLACompliance GET /analytics/sla-compliance.
func (h *AnalyticsHandler) SLACompliance(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.service.SLACompliance(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// PublicStats GET /public/stats. Unauthenticated.
func (h *AnalyticsHandler) PublicStats(c *fiber.Ctx) error {
	stats, err := h.service.GetPublicStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
