package domain

import (
	"fmt"
	"time"
)

// Audit actions recorded by the service.
const (
	AuditReplyCreated        = "reply.created"
	AuditReplyUpdated        = "reply.updated"
	AuditReplySubmitted      = "reply.submitted"
	AuditReplyApproved       = "reply.approved"
	AuditReplyRejected       = "reply.rejected"
	AuditLoginSuccess        = "auth.login.success"
	AuditLoginFailed         = "auth.login.failed"
	AuditRefreshSuccess      = "auth.refresh.success"
	AuditRefreshFailed       = "auth.refresh.failed"
	AuditLogout              = "auth.logout"
	AuditBruteForceDetected  = "security.brute_force_detected"
	AuditResourceSecurity    = "security"
	AuditResourceAuth        = "auth"
	AuditResourceReplyPrefix = "reply"
)

// AuditLogEntry is an append-only record of a security or business event.
// ActorID is nil for events recorded before authentication.
type AuditLogEntry struct {
	ID        string
	ActorID   *string
	Action    string
	Resource  string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ReplyResource formats the audit resource for a reply.
func ReplyResource(replyID string) string {
	return fmt.Sprintf("%s:%s", AuditResourceReplyPrefix, replyID)
}

// UserResource formats the audit resource for a user.
func UserResource(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
