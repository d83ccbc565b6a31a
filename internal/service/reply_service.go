package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/repository"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

// ReplyService coordinates the reply approval workflow.
type ReplyService struct {
	replies    repository.ReplyRepository
	feedback   repository.FeedbackRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ReplyDependencies bundles repositories for the reply service.
type ReplyDependencies struct {
	ReplyRepo    repository.ReplyRepository
	FeedbackRepo repository.FeedbackRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// ReplyCreateInput describes reply creation payload.
type ReplyCreateInput struct {
	FeedbackID string
	Content    string
}

// ReplyUpdateInput describes an edit. Status may only request SUBMITTED.
type ReplyUpdateInput struct {
	Content *string
	Status  *domain.ReplyStatus
}

// ReplyListFilter describes listing filters.
type ReplyListFilter struct {
	FeedbackID *string
	Status     *domain.ReplyStatus
	Page       int
	Limit      int
}

// NewReplyService constructs the service.
func NewReplyService(deps ReplyDependencies) *ReplyService {
	return &ReplyService{
		replies:    deps.ReplyRepo,
		feedback:   deps.FeedbackRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Create stores a DRAFT reply authored by actor.
func (s *ReplyService) Create(ctx context.Context, actor domain.Actor, input ReplyCreateInput) (*domain.Reply, error) {
	content, err := validateContent(input.Content)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.GetByID(ctx, input.FeedbackID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"id": input.FeedbackID})
		}
		return nil, apperrors.MapError(err)
	}

	reply := &domain.Reply{
		FeedbackID:  feedback.ID,
		Content:     content,
		Status:      domain.ReplyStatusDraft,
		SubmittedBy: actor.ID,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.EventReplyCreated, actor, reply, "", feedback.CustomerName, nil)
	return reply, nil
}

// Get returns a reply by id.
func (s *ReplyService) Get(ctx context.Context, id string) (*domain.Reply, error) {
	reply, err := s.replies.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("reply", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return reply, nil
}

// List returns replies, newest first.
func (s *ReplyService) List(ctx context.Context, filter ReplyListFilter) ([]domain.Reply, error) {
	page, limit := normalizePage(filter.Page, filter.Limit, 20, 100)
	repoFilter := repository.ReplyFilter{
		FeedbackID: filter.FeedbackID,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *filter.Status})
		}
		repoFilter.Statuses = []domain.ReplyStatus{*filter.Status}
	}
	replies, err := s.replies.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return replies, nil
}

// Stats counts replies per status.
func (s *ReplyService) Stats(ctx context.Context) (map[domain.ReplyStatus]int, error) {
	counts, err := s.replies.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, status := range []domain.ReplyStatus{domain.ReplyStatusDraft, domain.ReplyStatusSubmitted, domain.ReplyStatusApproved, domain.ReplyStatusRejected} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

// UpdateContent edits a reply and optionally submits it.
//
// Any staff member may edit a DRAFT. Once submitted only the author may touch
// it, and reviewed replies are frozen.
func (s *ReplyService) UpdateContent(ctx context.Context, actor domain.Actor, id string, input ReplyUpdateInput) (*domain.Reply, error) {
	if input.Content == nil && input.Status == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Status != nil && *input.Status != domain.ReplyStatusSubmitted {
		return nil, apperrors.NewValidationError("status can only be set to SUBMITTED", map[string]any{"status": *input.Status})
	}
	var content string
	if input.Content != nil {
		var err error
		if content, err = validateContent(*input.Content); err != nil {
			return nil, err
		}
	}

	reply, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reply.Status != domain.ReplyStatusDraft && reply.SubmittedBy != actor.ID {
		return nil, apperrors.NewForbidden("can only update draft replies or your own replies")
	}
	if input.Status != nil {
		if reply.Status != domain.ReplyStatusDraft {
			return nil, invalidReplyState(reply, "can only submit draft replies")
		}
		if reply.SubmittedBy != actor.ID {
			return nil, apperrors.NewForbidden("can only submit your own replies")
		}
	}

	// Content and submission land in one conditional write.
	if input.Status != nil {
		var newContent *string
		if input.Content != nil {
			newContent = &content
		}
		return s.applyTransition(ctx, actor, reply, domain.ReplyStatusSubmitted, nil, newContent)
	}

	if reply.Status.Terminal() {
		return nil, invalidReplyState(reply, "reviewed replies cannot be edited")
	}
	updated, err := s.replies.UpdateContent(ctx, id, reply.Status, content)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalidReplyState(reply, "reply changed concurrently")
		}
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.EventReplyUpdated, actor, updated, updated.Status, "", []string{"content"})
	return updated, nil
}

// Submit moves the author's DRAFT to SUBMITTED.
func (s *ReplyService) Submit(ctx context.Context, actor domain.Actor, id string) (*domain.Reply, error) {
	return s.transition(ctx, actor, id, domain.ReplyStatusSubmitted, nil)
}

// Approve moves a SUBMITTED reply to APPROVED. Managers only.
func (s *ReplyService) Approve(ctx context.Context, actor domain.Actor, id string, comment *string) (*domain.Reply, error) {
	if comment != nil && strings.TrimSpace(*comment) == "" {
		comment = nil
	}
	return s.transition(ctx, actor, id, domain.ReplyStatusApproved, comment)
}

// Reject moves a SUBMITTED reply to REJECTED with a mandatory reason. Managers only.
func (s *ReplyService) Reject(ctx context.Context, actor domain.Actor, id string, comment string) (*domain.Reply, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, apperrors.NewValidationError("comment is required when rejecting", map[string]any{"comment": "required"})
	}
	return s.transition(ctx, actor, id, domain.ReplyStatusRejected, &comment)
}

// ApprovalQueue lists SUBMITTED replies, oldest first. Managers only.
func (s *ReplyService) ApprovalQueue(ctx context.Context, actor domain.Actor) ([]domain.Reply, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}
	replies, err := s.replies.ListSubmitted(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return replies, nil
}

// transitionPolicy lists who may move a reply into a status.
type transitionPolicy struct {
	managerOnly bool
	authorOnly  bool
	review      bool
	event       events.EventType
}

var transitionPolicies = map[domain.ReplyStatus]transitionPolicy{
	domain.ReplyStatusSubmitted: {authorOnly: true, event: events.EventReplySubmitted},
	domain.ReplyStatusApproved:  {managerOnly: true, review: true, event: events.EventReplyApproved},
	domain.ReplyStatusRejected:  {managerOnly: true, review: true, event: events.EventReplyRejected},
}

var allowedTransitions = map[domain.ReplyStatus][]domain.ReplyStatus{
	domain.ReplyStatusDraft:     {domain.ReplyStatusSubmitted},
	domain.ReplyStatusSubmitted: {domain.ReplyStatusApproved, domain.ReplyStatusRejected},
	domain.ReplyStatusApproved:  {},
	domain.ReplyStatusRejected:  {},
}

func isValidTransition(current, next domain.ReplyStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *ReplyService) transition(ctx context.Context, actor domain.Actor, id string, to domain.ReplyStatus, comment *string) (*domain.Reply, error) {
	policy := transitionPolicies[to]
	if policy.managerOnly && !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}

	reply, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, actor, reply, to, comment, nil)
}

// applyTransition moves reply to status to in one conditional write. A non-nil
// content is written by the same statement.
func (s *ReplyService) applyTransition(ctx context.Context, actor domain.Actor, reply *domain.Reply, to domain.ReplyStatus, comment, content *string) (*domain.Reply, error) {
	policy := transitionPolicies[to]
	if policy.authorOnly && reply.SubmittedBy != actor.ID {
		return nil, apperrors.NewForbidden("can only submit your own replies")
	}
	if !isValidTransition(reply.Status, to) {
		return nil, invalidReplyState(reply, "transition not allowed from current status")
	}

	change := repository.ReplyTransition{ID: reply.ID, From: reply.Status, To: to, Content: content}
	if policy.review {
		reviewedAt := s.now()
		reviewer := actor.ID
		change.ReviewedBy = &reviewer
		change.ReviewedAt = &reviewedAt
		change.Comment = comment
	}

	updated, err := s.replies.Transition(ctx, change)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalidReplyState(reply, "reply was already processed")
		}
		return nil, apperrors.MapError(err)
	}

	if content != nil {
		s.publishEvent(ctx, events.EventReplyUpdated, actor, updated, reply.Status, "", []string{"content"})
	}
	s.publishEvent(ctx, policy.event, actor, updated, reply.Status, s.customerName(ctx, updated.FeedbackID), nil)
	return updated, nil
}

func (s *ReplyService) customerName(ctx context.Context, feedbackID string) string {
	feedback, err := s.feedback.GetByID(ctx, feedbackID)
	if err != nil {
		s.logger.Warn("customer lookup failed", zap.String("feedback_id", feedbackID), zap.Error(err))
		return fallbackCustomerName
	}
	return customerNameOrDefault(feedback.CustomerName)
}

func (s *ReplyService) publishEvent(ctx context.Context, typ events.EventType, actor domain.Actor, reply *domain.Reply, oldStatus domain.ReplyStatus, customerName string, changes []string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		ReplyID:   reply.ID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: s.now(),
		Payload: events.ReplyPayload{
			FeedbackID:   reply.FeedbackID,
			SubmittedBy:  reply.SubmittedBy,
			CustomerName: customerName,
			OldStatus:    oldStatus,
			NewStatus:    reply.Status,
			Comment:      reply.Comment,
			Changes:      changes,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", apperrors.NewValidationError("content is required", map[string]any{"content": "required"})
	}
	if utf8.RuneCountInString(content) > domain.MaxReplyContentLength {
		return "", apperrors.NewValidationError("content is too long", map[string]any{"content": "max 2000 characters"})
	}
	return content, nil
}

func invalidReplyState(reply *domain.Reply, message string) error {
	return apperrors.NewInvalidState(message, map[string]any{"id": reply.ID, "status": reply.Status})
}
