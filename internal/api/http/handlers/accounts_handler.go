package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// AccountsHandler exposes account and qualification endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
	clock    clock.Clock
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService, clk clock.Clock) *AccountsHandler {
	if clk == nil {
		clk = clock.Real()
	}
	return &AccountsHandler{accounts: accounts, clock: clk}
}

// List handles GET /accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	filter := service.AccountListFilter{
		NCOnly: parseBool(c.Query("nc")),
		Limit:  limit,
		Offset: offset,
	}
	if kind := c.Query("kind"); kind != "" {
		k := domain.AccountKind(kind)
		filter.Kind = &k
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	accounts, err := h.accounts.ListAccounts(c.UserContext(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.AccountSummary, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, accountSummary(&accounts[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create handles POST /accounts.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	account, err := h.accounts.AddAccount(c.UserContext(), actor, service.AccountCreateInput{
		Name:        req.Name,
		Kind:        req.Kind,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		City:        req.City,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": accountDetail(account)})
}

// Get handles GET /accounts/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	account, err := h.accounts.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountDetail(account)})
}

// Update handles PATCH /accounts/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	account, err := h.accounts.UpdateAccount(c.UserContext(), c.Params("id"), service.AccountUpdateInput{
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		City:        req.City,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountDetail(account)})
}

// Delete handles DELETE /accounts/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	if err := h.accounts.DeleteAccount(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Qualify handles POST /accounts/:id/qualifications. When the account was updated
// but the automated ticket failed, the response is 207 with both the result and
// the error.
func (h *AccountsHandler) Qualify(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.QualifyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	result, err := h.accounts.Qualify(c.UserContext(), actor, service.QualifyInput{
		AccountID:  c.Params("id"),
		Channel:    req.Channel,
		RuleID:     req.RuleID,
		Comment:    req.Comment,
		RecallDate: req.RecallDate,
	})
	if err != nil && result == nil {
		return err
	}

	resp := dto.QualificationResponse{
		Account:     accountDetail(result.Account),
		Interaction: interactionResponse(result.Interaction),
	}
	if result.Ticket != nil {
		summary := ticketSummary(result.Ticket, h.clock.Now())
		resp.Ticket = &summary
	}
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(http.StatusMultiStatus).JSON(fiber.Map{
			"data": resp,
			"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			},
		})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// Convert handles POST /accounts/:id/convert.
func (h *AccountsHandler) Convert(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.ConvertToClient(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountDetail(account)})
}

func accountSummary(a *domain.Account) dto.AccountSummary {
	return dto.AccountSummary{
		ID:              a.ID,
		Name:            a.Name,
		Kind:            a.Kind,
		Status:          a.Status,
		IsNC:            a.IsNC,
		NextRecall:      a.NextRecall,
		City:            a.City,
		LastInteraction: a.LastInteraction,
		UpdatedAt:       a.UpdatedAt,
	}
}

func accountDetail(a *domain.Account) dto.AccountDetailResponse {
	interactions := make([]dto.InteractionResponse, 0, len(a.Interactions))
	for _, in := range a.Interactions {
		interactions = append(interactions, interactionResponse(in))
	}
	return dto.AccountDetailResponse{
		AccountSummary: accountSummary(a),
		ContactName:    a.ContactName,
		Email:          a.Email,
		Phone:          a.Phone,
		CreatedAt:      a.CreatedAt,
		Interactions:   interactions,
	}
}

func interactionResponse(in domain.Interaction) dto.InteractionResponse {
	return dto.InteractionResponse{
		ID:        in.ID,
		Timestamp: in.Timestamp,
		Channel:   in.Channel,
		RuleID:    in.RuleID,
		Comment:   in.Comment,
		Agent:     in.Agent,
	}
}
