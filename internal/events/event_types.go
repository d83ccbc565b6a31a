package events

import (
	"time"

	"github.com/crmdesk/reply-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReplyCreated   EventType = "reply.created"
	EventReplyUpdated   EventType = "reply.updated"
	EventReplySubmitted EventType = "reply.submitted"
	EventReplyApproved  EventType = "reply.approved"
	EventReplyRejected  EventType = "reply.rejected"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReplyID   string      `json:"reply_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReplyPayload carries the reply state after the change plus context subscribers need.
type ReplyPayload struct {
	FeedbackID   string             `json:"feedback_id"`
	SubmittedBy  string             `json:"submitted_by"`
	CustomerName string             `json:"customer_name"`
	OldStatus    domain.ReplyStatus `json:"old_status,omitempty"`
	NewStatus    domain.ReplyStatus `json:"new_status"`
	Comment      *string            `json:"comment,omitempty"`
	Changes      []string           `json:"changes,omitempty"`
}
