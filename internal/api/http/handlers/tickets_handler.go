package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	clock   clock.Clock
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, clk clock.Clock) *TicketsHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketsHandler{tickets: tickets, clock: clk}
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	filter := service.TicketListFilter{
		OverdueOnly: parseBool(c.Query("overdue")),
		Limit:       limit,
		Offset:      offset,
	}
	if accountID := c.Query("account_id"); accountID != "" {
		filter.AccountID = &accountID
	}
	for _, s := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(s))
	}
	for _, p := range splitQuery(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(p))
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	now := h.clock.Now()
	resp := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, ticketSummary(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	ticket, err := h.tickets.AddTicket(c.UserContext(), actor, service.TicketCreateInput{
		AccountID:   req.AccountID,
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Type:        req.Type,
		Channel:     req.Channel,
		Department:  req.Department,
		Assignee:    req.Assignee,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.detail(ticket)})
}

// Trigger handles POST /tickets/automated.
func (h *TicketsHandler) Trigger(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TriggerTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	ticket, err := h.tickets.TriggerTicket(c.UserContext(), actor, service.TriggerInput{
		EventType:   req.EventType,
		AccountID:   req.AccountID,
		AccountName: req.AccountName,
		Details:     req.Details,
		Channel:     req.Channel,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.detail(ticket)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket)})
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), service.TicketUpdateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Type:        req.Type,
		Channel:     req.Channel,
		Department:  req.Department,
		Assignee:    req.Assignee,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket)})
}

// Delete handles DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	if err := h.tickets.DeleteTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Transition handles POST /tickets/:id/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	ticket, err := h.tickets.Transition(c.UserContext(), actor, c.Params("id"), service.TransitionInput{
		To:                req.Status,
		Note:              req.Note,
		Assignee:          req.Assignee,
		ResolutionSummary: req.ResolutionSummary,
		CorrectiveAction:  req.CorrectiveAction,
		Confirmed:         req.Confirmed,
		Satisfied:         req.Satisfied,
		FinalComment:      req.FinalComment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket)})
}

// AddNote handles POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	ticket, err := h.tickets.AddNote(c.UserContext(), actor, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.detail(ticket)})
}

// Unblock handles POST /tickets/:id/unblock.
func (h *TicketsHandler) Unblock(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Unblock(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket)})
}

// Archive handles POST /tickets/:id/archive.
func (h *TicketsHandler) Archive(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Archive(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket)})
}

// SimulateEscalation handles POST /tickets/escalations/simulate.
func (h *TicketsHandler) SimulateEscalation(c *fiber.Ctx) error {
	report, err := h.tickets.SimulateEscalation(c.UserContext())
	if err != nil && report.Due == 0 {
		return err
	}
	escalated := report.Escalated
	if escalated == nil {
		escalated = []string{}
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		Due:       report.Due,
		Escalated: escalated,
		Failed:    report.Failed,
	}})
}

func (h *TicketsHandler) detail(t *domain.Ticket) dto.TicketDetailResponse {
	timeline := make([]dto.TimelineEventResponse, 0, len(t.Timeline))
	for _, ev := range t.Timeline {
		timeline = append(timeline, dto.TimelineEventResponse{
			ID:         ev.ID,
			Kind:       ev.Kind,
			Content:    ev.Content,
			Author:     ev.Author,
			CreatedAt:  ev.CreatedAt,
			StatusFrom: ev.StatusFrom,
			StatusTo:   ev.StatusTo,
		})
	}
	notes := t.InternalNotes
	if notes == nil {
		notes = []string{}
	}
	return dto.TicketDetailResponse{
		TicketSummary:     ticketSummary(t, h.clock.Now()),
		Description:       t.Description,
		Channel:           t.Channel,
		ResolutionSummary: t.ResolutionSummary,
		CorrectiveAction:  t.CorrectiveAction,
		Satisfied:         t.Satisfied,
		FinalComment:      t.FinalComment,
		InternalNotes:     notes,
		Archived:          t.Archived,
		ClosedAt:          t.ClosedAt,
		Timeline:          timeline,
	}
}

func ticketSummary(t *domain.Ticket, now time.Time) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          t.ID,
		Reference:   t.Reference,
		AccountID:   t.AccountID,
		AccountName: t.AccountName,
		Subject:     t.Subject,
		Status:      t.Status,
		Priority:    t.Priority,
		Type:        t.Type,
		Department:  t.Department,
		Assignee:    t.Assignee,
		SLADeadline: t.SLADeadline,
		Overdue:     !t.Status.EscalationProtected() && t.Overdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
