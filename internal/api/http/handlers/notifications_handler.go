package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// NotificationsHandler exposes the activity feed.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	items, err := h.notifications.ListNotifications(c.UserContext(), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.NotificationResponse{
			ID:           item.ID,
			Title:        item.Title,
			Description:  item.Description,
			Category:     item.Category,
			Read:         item.Read,
			CreatedAt:    item.CreatedAt,
			RelativeTime: item.RelativeTime,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead handles POST /notifications/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkAllRead(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Clear handles DELETE /notifications.
func (h *NotificationsHandler) Clear(c *fiber.Ctx) error {
	if err := h.notifications.ClearNotifications(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
