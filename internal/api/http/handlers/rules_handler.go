package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// RulesHandler exposes the qualification catalog.
type RulesHandler struct {
	rules *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.RuleService) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// List handles GET /rules.
func (h *RulesHandler) List(c *fiber.Ctx) error {
	rules, err := h.rules.ListRules(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.RuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, ruleResponse(rule))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /rules/:id.
func (h *RulesHandler) Get(c *fiber.Ctx) error {
	rule, err := h.rules.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(*rule)})
}

// Put handles PUT /rules/:id.
func (h *RulesHandler) Put(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	rule, err := h.rules.UpsertRule(c.UserContext(), domain.QualificationRule{
		ID:             c.Params("id"),
		Label:          req.Label,
		DefaultStatus:  req.DefaultStatus,
		RecallRequired: req.RecallRequired,
		TicketRequired: req.TicketRequired,
		MarkNC:         req.MarkNC,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(*rule)})
}

// Delete handles DELETE /rules/:id.
func (h *RulesHandler) Delete(c *fiber.Ctx) error {
	if err := h.rules.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func ruleResponse(rule domain.QualificationRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:             rule.ID,
		Label:          rule.Label,
		DefaultStatus:  rule.DefaultStatus,
		RecallRequired: rule.RecallRequired,
		TicketRequired: rule.TicketRequired,
		MarkNC:         rule.MarkNC,
	}
}
