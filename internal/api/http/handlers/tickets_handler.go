package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/ticketing-service/internal/api/dto"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/service"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	clock   domain.Clock
}

func NewTicketsHandler(tickets *service.TicketService, clock domain.Clock) *TicketsHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TicketsHandler{tickets: tickets, clock: clock}
}

// Create files a new ticket for the authenticated user.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.TicketCategory(req.Category),
		Priority:    domain.TicketPriority(req.Priority),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(ticket, h.clock.Now()))
}

// List returns tickets visible to the caller, filtered by query parameters.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := service.TicketListFilter{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	for _, value := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(value))
	}
	for _, value := range splitQuery(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(value))
	}
	for _, value := range splitQuery(c.Query("category")) {
		filter.Categories = append(filter.Categories, domain.TicketCategory(value))
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tickets": dto.NewTicketResponses(tickets, h.clock.Now())})
}

// Get returns a single ticket with its thread and audit trail.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")
	ticket, err := h.tickets.GetTicket(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketDetailResponse{
		Ticket:   dto.NewTicketResponse(ticket, h.clock.Now()),
		Comments: dto.NewCommentResponses(comments),
		History:  dto.NewHistoryResponses(history),
	})
}

// Update applies a partial mutation. Staff only.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		StatusNotes: req.StatusNotes,
	}
	if req.Category != nil {
		category := domain.TicketCategory(*req.Category)
		input.Category = &category
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket, h.clock.Now()))
}

// ChangeStatus transitions the ticket. Staff only.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeStatusRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), actor, c.Params("id"), domain.TicketStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket, h.clock.Now()))
}

// Assign sets or clears the assignee. Staff only.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket, h.clock.Now()))
}

// AddComment appends to the ticket thread.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, domain.CommentType(req.Type))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCommentResponse(comment))
}

// ListComments returns the thread visible to the caller, oldest first.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	comments, err := h.tickets.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"comments": dto.NewCommentResponses(comments)})
}

func queryInt(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
