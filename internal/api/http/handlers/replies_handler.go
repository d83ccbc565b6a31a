package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/reply-service/internal/api/dto"
	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/service"
)

// RepliesHandler exposes the reply approval workflow.
type RepliesHandler struct {
	service *service.ReplyService
}

// NewRepliesHandler constructs handler.
func NewRepliesHandler(replyService *service.ReplyService) *RepliesHandler {
	return &RepliesHandler{service: replyService}
}

// Create POST /replies.
func (h *RepliesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reply, err := h.service.Create(c.UserContext(), actor, service.ReplyCreateInput{
		FeedbackID: req.FeedbackID,
		Content:    req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

// List GET /replies.
func (h *RepliesHandler) List(c *fiber.Ctx) error {
	filter := service.ReplyListFilter{
		FeedbackID: optionalQuery(c, "feedback_id"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.ReplyStatus(raw)
		filter.Status = &status
	}
	replies, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyList(replies)})
}

// Stats GET /replies/stats.
func (h *RepliesHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ApprovalQueue GET /replies/approval-queue.
func (h *RepliesHandler) ApprovalQueue(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	replies, err := h.service.ApprovalQueue(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyList(replies)})
}

// Get GET /replies/:id.
func (h *RepliesHandler) Get(c *fiber.Ctx) error {
	reply, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

// Update PATCH /replies/:id.
func (h *RepliesHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reply, err := h.service.UpdateContent(c.UserContext(), actor, c.Params("id"), service.ReplyUpdateInput{
		Content: req.Content,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

// Submit POST /replies/:id/submit.
func (h *RepliesHandler) Submit(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	reply, err := h.service.Submit(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

// Approve POST /replies/:id/approve.
func (h *RepliesHandler) Approve(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ApproveReplyRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	reply, err := h.service.Approve(c.UserContext(), actor, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

// Reject POST /replies/:id/reject.
func (h *RepliesHandler) Reject(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.RejectReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reply, err := h.service.Reject(c.UserContext(), actor, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}
