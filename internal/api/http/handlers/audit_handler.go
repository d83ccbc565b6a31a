package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/reply-service/internal/api/dto"
	"github.com/crmdesk/reply-service/internal/service"
)

// AuditHandler exposes audit log queries.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// List GET /audit.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.AuditQuery{
		ActorID:  optionalQuery(c, "actor_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		From:     from,
		To:       to,
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewAuditLogList(page.Entries),
		"meta": dto.PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages},
	})
}

// Get GET /audit/:id.
func (h *AuditHandler) Get(c *fiber.Ctx) error {
	entry, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditLogResponse(entry)})
}

// ResourceHistory GET /audit/resource/:resource.
func (h *AuditHandler) ResourceHistory(c *fiber.Ctx) error {
	entries, err := h.service.ResourceHistory(c.UserContext(), c.Params("resource"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditLogList(entries)})
}

// MyActivity GET /audit/my-activity.
func (h *AuditHandler) MyActivity(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.service.UserActivity(c.UserContext(), actor.ID, queryInt(c, "days"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditLogList(entries)})
}
