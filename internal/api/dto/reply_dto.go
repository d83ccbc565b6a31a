package dto

import (
	"time"

	"github.com/crmdesk/reply-service/internal/domain"
)

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	FeedbackID string `json:"feedback_id" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// UpdateReplyRequest payload. Content length is checked by the service in characters.
type UpdateReplyRequest struct {
	Content *string             `json:"content"`
	Status  *domain.ReplyStatus `json:"status" validate:"omitempty,oneof=SUBMITTED"`
}

// ApproveReplyRequest payload.
type ApproveReplyRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// RejectReplyRequest payload.
type RejectReplyRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}

// ReplyResponse is the public view of a reply.
type ReplyResponse struct {
	ID          string             `json:"id"`
	FeedbackID  string             `json:"feedback_id"`
	Content     string             `json:"content"`
	Status      domain.ReplyStatus `json:"status"`
	SubmittedBy string             `json:"submitted_by"`
	ReviewedBy  *string            `json:"reviewed_by"`
	ReviewedAt  *time.Time         `json:"reviewed_at"`
	Comment     *string            `json:"comment"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewReplyResponse maps a reply.
func NewReplyResponse(r *domain.Reply) ReplyResponse {
	return ReplyResponse{
		ID:          r.ID,
		FeedbackID:  r.FeedbackID,
		Content:     r.Content,
		Status:      r.Status,
		SubmittedBy: r.SubmittedBy,
		ReviewedBy:  r.ReviewedBy,
		ReviewedAt:  r.ReviewedAt,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewReplyList maps a slice of replies.
func NewReplyList(replies []domain.Reply) []ReplyResponse {
	out := make([]ReplyResponse, 0, len(replies))
	for i := range replies {
		out = append(out, NewReplyResponse(&replies[i]))
	}
	return out
}
