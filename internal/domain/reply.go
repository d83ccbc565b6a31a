package domain

import "time"

// ReplyStatus tracks the approval lifecycle of a reply.
type ReplyStatus string

const (
	ReplyStatusDraft     ReplyStatus = "DRAFT"
	ReplyStatusSubmitted ReplyStatus = "SUBMITTED"
	ReplyStatusApproved  ReplyStatus = "APPROVED"
	ReplyStatusRejected  ReplyStatus = "REJECTED"
)

// MaxReplyContentLength bounds reply content in characters.
const MaxReplyContentLength = 2000

// Valid reports whether s is a known status.
func (s ReplyStatus) Valid() bool {
	switch s {
	case ReplyStatusDraft, ReplyStatusSubmitted, ReplyStatusApproved, ReplyStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s ReplyStatus) Terminal() bool {
	return s == ReplyStatusApproved || s == ReplyStatusRejected
}

// Reply is a staff-authored response to a feedback item.
// ReviewedBy, ReviewedAt and Comment are only set once the reply is approved or rejected.
type Reply struct {
	ID          string
	FeedbackID  string
	Content     string
	Status      ReplyStatus
	SubmittedBy string
	ReviewedBy  *string
	ReviewedAt  *time.Time
	Comment     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
