package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/reply-service/internal/api/dto"
	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/service"
)

// NotificationsHandler exposes the caller's in-app notifications.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// Mine GET /notifications/my.
func (h *NotificationsHandler) Mine(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var status *domain.NotificationStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.NotificationStatus(raw)
		status = &s
	}
	items, err := h.service.ListForUser(c.UserContext(), actor.ID, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationList(items)})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAsRead(c.UserContext(), c.Params("id"), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllAsRead(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}
