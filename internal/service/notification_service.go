package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/repository"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

const (
	maxUserNotifications       = 50
	defaultNotificationAgeDays = 30
	fallbackCustomerName       = "Customer"
)

// NotificationService stores in-app notifications and reacts to reply events.
type NotificationService struct {
	repo       repository.NotificationRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Now              func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		repo:       deps.NotificationRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Create stores a PENDING notification and delivers it in-app. If delivery
// cannot be recorded the notification ends up FAILED.
func (n *NotificationService) Create(ctx context.Context, userID string, typ domain.NotificationType, title, message string, payload map[string]any) (*domain.Notification, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	notification := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Payload: payload,
		Status:  domain.NotificationPending,
	}
	if err := n.repo.Create(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}

	deliveredAt := n.now()
	if err := n.repo.SetStatus(ctx, notification.ID, domain.NotificationDelivered, deliveredAt); err != nil {
		n.logger.Error("failed to mark notification delivered",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
		if ferr := n.MarkAsFailed(ctx, notification.ID); ferr != nil {
			n.logger.Error("failed to mark notification failed",
				zap.String("notification_id", notification.ID),
				zap.Error(ferr))
		}
		notification.Status = domain.NotificationFailed
		return notification, nil
	}
	notification.Status = domain.NotificationDelivered
	notification.DeliveredAt = &deliveredAt
	return notification, nil
}

// ListForUser returns up to 50 of the user's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID string, status *domain.NotificationStatus) ([]domain.Notification, error) {
	items, err := n.repo.ListForUser(ctx, userID, status, maxUserNotifications)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UnreadCount counts PENDING and DELIVERED notifications.
func (n *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := n.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// MarkAsRead marks one of the user's unread notifications as READ. Returns the
// number of rows changed; zero is not an error.
func (n *NotificationService) MarkAsRead(ctx context.Context, id, userID string) (int64, error) {
	updated, err := n.repo.MarkRead(ctx, userID, &id, n.now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return updated, nil
}

// MarkAllAsRead marks every unread notification of the user as READ.
func (n *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := n.repo.MarkRead(ctx, userID, nil, n.now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return updated, nil
}

// MarkAsFailed flags a notification whose delivery failed.
func (n *NotificationService) MarkAsFailed(ctx context.Context, id string) error {
	return n.repo.SetStatus(ctx, id, domain.NotificationFailed, n.now())
}

// DeleteOldNotifications removes READ notifications older than daysOld days.
func (n *NotificationService) DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = defaultNotificationAgeDays
	}
	cutoff := n.now().AddDate(0, 0, -daysOld)
	deleted, err := n.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n.logger.Info("notification retention sweep", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

// NotifyReplyApproved tells the author their reply was approved.
func (n *NotificationService) NotifyReplyApproved(ctx context.Context, userID, replyID, customerName string) (*domain.Notification, error) {
	return n.Create(ctx, userID, domain.NotificationReplyApproved,
		"Reply Approved",
		fmt.Sprintf("Your reply for %s has been approved and is ready to send.", customerName),
		map[string]any{"replyId": replyID, "customerName": customerName})
}

// NotifyReplyRejected tells the author their reply was rejected and why.
func (n *NotificationService) NotifyReplyRejected(ctx context.Context, userID, replyID, customerName, reason string) (*domain.Notification, error) {
	message := fmt.Sprintf("Your reply for %s has been rejected", customerName)
	if reason != "" {
		message += ": " + reason
	} else {
		message += "."
	}
	return n.Create(ctx, userID, domain.NotificationReplyRejected,
		"Reply Rejected",
		message,
		map[string]any{"replyId": replyID, "customerName": customerName, "reason": reason})
}

// NotifyFeedbackAssigned tells a user new feedback was assigned to them.
func (n *NotificationService) NotifyFeedbackAssigned(ctx context.Context, userID, feedbackID, customerName string) (*domain.Notification, error) {
	return n.Create(ctx, userID, domain.NotificationFeedbackAssigned,
		"New Feedback Assigned",
		fmt.Sprintf("You have been assigned new feedback from %s.", customerName),
		map[string]any{"feedbackId": feedbackID, "customerName": customerName})
}

// NotifyCustomerUpdated tells a user a customer they follow changed.
func (n *NotificationService) NotifyCustomerUpdated(ctx context.Context, userID, customerID, customerName string) (*domain.Notification, error) {
	return n.Create(ctx, userID, domain.NotificationCustomerUpdated,
		"Customer Updated",
		fmt.Sprintf("Customer %s has been updated.", customerName),
		map[string]any{"customerId": customerID, "customerName": customerName})
}

// NotifyReplySubmitted tells a manager a reply is waiting for approval.
func (n *NotificationService) NotifyReplySubmitted(ctx context.Context, managerID, replyID, customerName string) (*domain.Notification, error) {
	return n.Create(ctx, managerID, domain.NotificationReplySubmitted,
		"Reply Submitted for Review",
		fmt.Sprintf("A reply for %s has been submitted and is waiting for your approval.", customerName),
		map[string]any{"replyId": replyID, "customerName": customerName})
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReplyApproved, n.handleReplyApproved)
	n.dispatcher.Subscribe(events.EventReplyRejected, n.handleReplyRejected)
	n.dispatcher.Subscribe(events.EventReplySubmitted, n.handleReplySubmitted)
}

func (n *NotificationService) handleReplyApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	_, err := n.NotifyReplyApproved(ctx, payload.SubmittedBy, event.ReplyID, customerNameOrDefault(payload.CustomerName))
	return err
}

func (n *NotificationService) handleReplyRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	reason := ""
	if payload.Comment != nil {
		reason = *payload.Comment
	}
	_, err := n.NotifyReplyRejected(ctx, payload.SubmittedBy, event.ReplyID, customerNameOrDefault(payload.CustomerName), reason)
	return err
}

func (n *NotificationService) handleReplySubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReplyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if n.users == nil {
		return nil
	}
	managers, err := n.users.ListByRole(ctx, domain.RoleManager)
	if err != nil {
		return err
	}
	for _, manager := range managers {
		if _, err := n.NotifyReplySubmitted(ctx, manager.ID, event.ReplyID, customerNameOrDefault(payload.CustomerName)); err != nil {
			n.logger.Error("failed to notify manager",
				zap.String("manager_id", manager.ID),
				zap.String("reply_id", event.ReplyID),
				zap.Error(err))
		}
	}
	return nil
}

func customerNameOrDefault(name string) string {
	if name == "" {
		return fallbackCustomerName
	}
	return name
}
