package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/repository"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

const (
	defaultActivityDays  = 30
	maxActivityEntries   = 100
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
)

// AuditService records and queries the audit log. Writes never fail the caller.
type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

// AuditDependencies bundles requirements for the audit service.
type AuditDependencies struct {
	AuditRepo repository.AuditRepository
	Logger    *zap.Logger
	Now       func() time.Time
}

// AuditQuery describes a paged audit search.
type AuditQuery struct {
	ActorID  *string
	Action   string
	Resource string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// AuditPage is one page of audit entries.
type AuditPage struct {
	Entries    []domain.AuditLogEntry
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// NewAuditService builds the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	return &AuditService{
		repo:   deps.AuditRepo,
		logger: loggerOrNop(deps.Logger),
		now:    clockOrDefault(deps.Now),
	}
}

// Log appends an entry attributed to actorID.
func (s *AuditService) Log(ctx context.Context, actorID, action, resource string, metadata map[string]any) {
	id := actorID
	s.write(ctx, &id, action, resource, metadata)
}

// LogAnonymous appends an entry with no actor, for events before authentication.
func (s *AuditService) LogAnonymous(ctx context.Context, action, resource string, metadata map[string]any) {
	s.write(ctx, nil, action, resource, metadata)
}

func (s *AuditService) write(ctx context.Context, actorID *string, action, resource string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	entry := &domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   action,
		Resource: resource,
		Metadata: metadata,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err))
	}
}

// List returns a filtered page of entries, newest first.
func (s *AuditService) List(ctx context.Context, q AuditQuery) (*AuditPage, error) {
	page, limit := normalizePage(q.Page, q.Limit, defaultAuditPageSize, maxAuditPageSize)
	entries, total, err := s.repo.List(ctx, repository.AuditFilter{
		ActorID:  q.ActorID,
		Action:   q.Action,
		Resource: q.Resource,
		From:     q.From,
		To:       q.To,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AuditPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Get returns a single entry.
func (s *AuditService) Get(ctx context.Context, id string) (*domain.AuditLogEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("audit log", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

// UserActivity returns the user's own entries from the last days days.
func (s *AuditService) UserActivity(ctx context.Context, userID string, days int) ([]domain.AuditLogEntry, error) {
	if days <= 0 {
		days = defaultActivityDays
	}
	from := s.now().AddDate(0, 0, -days)
	entries, _, err := s.repo.List(ctx, repository.AuditFilter{
		ActorID: &userID,
		From:    &from,
		Limit:   maxActivityEntries,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ResourceHistory returns all entries for a resource in chronological order.
func (s *AuditService) ResourceHistory(ctx context.Context, resource string) ([]domain.AuditLogEntry, error) {
	entries, err := s.repo.ListByResource(ctx, resource)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// CleanupOlderThan deletes entries older than days days.
func (s *AuditService) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("audit retention sweep", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

// RegisterHandlers records reply workflow events.
func (s *AuditService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventReplyCreated, s.handleReplyEvent)
	dispatcher.Subscribe(events.EventReplyUpdated, s.handleReplyEvent)
	dispatcher.Subscribe(events.EventReplySubmitted, s.handleReplyEvent)
	dispatcher.Subscribe(events.EventReplyApproved, s.handleReplyEvent)
	dispatcher.Subscribe(events.EventReplyRejected, s.handleReplyEvent)
}

func (s *AuditService) handleReplyEvent(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ReplyPayload)

	metadata := map[string]any{}
	switch event.Type {
	case events.EventReplyCreated, events.EventReplySubmitted:
		metadata["feedbackId"] = payload.FeedbackID
	case events.EventReplyUpdated:
		metadata["changes"] = payload.Changes
	case events.EventReplyApproved, events.EventReplyRejected:
		if payload.Comment != nil {
			metadata["comment"] = *payload.Comment
		}
	}

	s.Log(ctx, event.Actor.UserID, string(event.Type), domain.ReplyResource(event.ReplyID), metadata)
	return nil
}
