package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-maintenance/internal/api/dto"
	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/internal/service"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets    *service.TicketService
	assignment *service.AssignmentService
	duplicates *service.DuplicateService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignment *service.AssignmentService, duplicates *service.DuplicateService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignment: assignment, duplicates: duplicates}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Building) == "" {
		return apperrors.NewValidationError("title and building required", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Building:    req.Building,
		Location:    req.Location,
		Urgency:     req.Urgency,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CheckDuplicates POST /tickets/check-duplicates.
func (h *TicketsHandler) CheckDuplicates(c *fiber.Ctx) error {
	var req dto.CheckDuplicatesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Building) == "" {
		return apperrors.NewValidationError("title and building required", nil)
	}
	report, err := h.duplicates.Check(c.Context(), service.DuplicateCandidate{
		Title:    req.Title,
		Category: req.Category,
		Building: req.Building,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// ListTickets GET /tickets. Admin search surface.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListTickets(c.Context(), actor, parseTicketFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListMyTickets GET /tickets/my.
func (h *TicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListMyTickets(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListAssignedTickets GET /tickets/assigned.
func (h *TicketsHandler) ListAssignedTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListAssignedTickets(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.tickets.GetTicketDetail(c.Context(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(detail)})
}

// GetLogs GET /tickets/:id/logs.
func (h *TicketsHandler) GetLogs(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	logs, err := h.tickets.GetLogs(c.Context(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketLogResponses(logs)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.Context(), c.Params("id"), actor, req.Status, req.Note, req.Override)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign PATCH /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	ticket, err := h.assignment.Assign(c.Context(), c.Params("id"), req.AssigneeID, actor, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AutoAssign POST /tickets/:id/auto-assign. Picks the least loaded
// technician; having none available is a soft failure, not an error.
func (h *TicketsHandler) AutoAssign(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	assignee, err := h.assignment.FindBestAssignee(c.Context())
	if err != nil {
		return err
	}
	if assignee == nil {
		return c.JSON(fiber.Map{"data": dto.AutoAssignResponse{
			Assigned: false,
			Message:  "no technicians available",
		}})
	}
	ticket, err := h.assignment.Assign(c.Context(), c.Params("id"), assignee.ID, actor, "Auto-assigned to least loaded technician")
	if err != nil {
		return err
	}
	resp := ticketResponse(ticket)
	return c.JSON(fiber.Map{"data": dto.AutoAssignResponse{Assigned: true, Ticket: &resp}})
}

// RateTicket POST /tickets/:id/rate.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rating, err := h.tickets.RateTicket(c.Context(), c.Params("id"), actor, req.Stars, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketRatingResponse(rating)})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{
		Limit:  clampInt(c.Query("limit"), 50, 200),
		Offset: clampInt(c.Query("offset"), 0, 1<<20),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status.IsValid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.TicketCategory(strings.ToUpper(strings.TrimSpace(raw)))
		if category.IsValid() {
			filter.Category = &category
		}
	}
	if raw := c.Query("urgency"); raw != "" {
		urgency := domain.UrgencyLevel(strings.ToUpper(strings.TrimSpace(raw)))
		if urgency.IsValid() {
			filter.Urgency = &urgency
		}
	}
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		filter.SearchTerm = &raw
	}
	if raw := strings.TrimSpace(c.Query("creator_id")); raw != "" {
		filter.CreatorID = &raw
	}
	if raw := strings.TrimSpace(c.Query("assignee_id")); raw != "" {
		filter.AssigneeID = &raw
	}
	return filter
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    ticket.Category,
		Building:    ticket.Building,
		Location:    ticket.Location,
		Status:      ticket.Status,
		Urgency:     ticket.Urgency,
		CreatorID:   ticket.CreatorID,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func ticketLogResponses(logs []domain.TicketLog) []dto.TicketLogResponse {
	items := make([]dto.TicketLogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, dto.TicketLogResponse{
			ID:        logs[i].ID,
			OldStatus: logs[i].OldStatus,
			NewStatus: logs[i].NewStatus,
			ActorID:   logs[i].ActorID,
			Note:      logs[i].Note,
			CreatedAt: logs[i].CreatedAt,
		})
	}
	return items
}

func ticketRatingResponse(rating *domain.TicketRating) dto.TicketRatingResponse {
	return dto.TicketRatingResponse{
		ID:        rating.ID,
		Stars:     rating.Stars,
		Comment:   rating.Comment,
		RatedBy:   rating.RatedBy,
		CreatedAt: rating.CreatedAt,
	}
}

func ticketDetailResponse(detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		Ticket: ticketResponse(detail.Ticket),
		Logs:   ticketLogResponses(detail.Logs),
	}
	if detail.Rating != nil {
		rating := ticketRatingResponse(detail.Rating)
		resp.Rating = &rating
	}
	if detail.Creator != nil {
		resp.CreatorName = detail.Creator.Name
	}
	if detail.Assignee != nil {
		resp.AssigneeName = detail.Assignee.Name
	}
	return resp
}
