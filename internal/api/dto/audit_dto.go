package dto

import (
	"time"

	"github.com/crmdesk/reply-service/internal/domain"
)

// AuditLogResponse is the public view of an audit entry.
type AuditLogResponse struct {
	ID        string         `json:"id"`
	ActorID   *string        `json:"actor_id"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// PageMeta describes a paged response.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewAuditLogResponse maps one entry.
func NewAuditLogResponse(e *domain.AuditLogEntry) AuditLogResponse {
	return AuditLogResponse{
		ID:        e.ID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Resource:  e.Resource,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// NewAuditLogList maps entries.
func NewAuditLogList(entries []domain.AuditLogEntry) []AuditLogResponse {
	out := make([]AuditLogResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewAuditLogResponse(&entries[i]))
	}
	return out
}
