package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/ticketing-service/internal/api/dto"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/service"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// NotificationsHandler serves the per-user notification feed.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List returns the caller's recent notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notifications, err := h.notifications.ListRecent(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": dto.NewNotificationResponses(notifications)})
}

// UnreadCount returns the caller's unread badge count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.notifications.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.UnreadCountResponse{Unread: count})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkRead(c.UserContext(), actor.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllRead marks all of the caller's notifications as read.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkAllRead(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
