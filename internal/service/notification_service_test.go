package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository/memory"
)

// flakyNotificationRepo fails every delivery update.
type flakyNotificationRepo struct {
	*memory.NotificationRepository
}

func (r flakyNotificationRepo) SetStatus(ctx context.Context, id string, status domain.NotificationStatus, at time.Time) error {
	if status == domain.NotificationDelivered {
		return errors.New("delivery channel down")
	}
	return r.NotificationRepository.SetStatus(ctx, id, status, at)
}

func TestNotificationCreateDelivers(t *testing.T) {
	repo := memory.NewNotificationRepository()
	svc := NewNotificationService(NotificationDependencies{NotificationRepo: repo})
	ctx := context.Background()

	n, err := svc.NotifyReplyApproved(ctx, "user-1", "reply-1", "Acme")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationDelivered, n.Status)
	assert.NotNil(t, n.DeliveredAt)
	assert.Equal(t, "Reply Approved", n.Title)
	assert.Equal(t, "Your reply for Acme has been approved and is ready to send.", n.Message)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationFailedDelivery(t *testing.T) {
	repo := memory.NewNotificationRepository()
	svc := NewNotificationService(NotificationDependencies{NotificationRepo: flakyNotificationRepo{repo}})
	ctx := context.Background()

	n, err := svc.NotifyFeedbackAssigned(ctx, "user-1", "fb-1", "Acme")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, n.Status)

	failed := domain.NotificationFailed
	items, err := svc.ListForUser(ctx, "user-1", &failed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, n.ID, items[0].ID)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := memory.NewNotificationRepository()
	svc := NewNotificationService(NotificationDependencies{NotificationRepo: repo})
	ctx := context.Background()

	first, err := svc.NotifyCustomerUpdated(ctx, "user-1", "c-1", "Acme")
	require.NoError(t, err)
	_, err = svc.NotifyReplyRejected(ctx, "user-1", "reply-1", "Acme", "")
	require.NoError(t, err)
	_, err = svc.NotifyReplyApproved(ctx, "user-2", "reply-2", "Acme")
	require.NoError(t, err)

	updated, err := svc.MarkAsRead(ctx, first.ID, "user-2")
	require.NoError(t, err)
	assert.Zero(t, updated, "other users cannot mark the notification")

	updated, err = svc.MarkAsRead(ctx, first.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	updated, err = svc.MarkAllAsRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = svc.UnreadCount(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationRejectedMessage(t *testing.T) {
	svc := NewNotificationService(NotificationDependencies{NotificationRepo: memory.NewNotificationRepository()})
	ctx := context.Background()

	n, err := svc.NotifyReplyRejected(ctx, "user-1", "reply-1", "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, "Your reply for Acme has been rejected.", n.Message)

	n, err = svc.NotifyReplyRejected(ctx, "user-1", "reply-1", "Acme", "wrong tone")
	require.NoError(t, err)
	assert.Equal(t, "Your reply for Acme has been rejected: wrong tone", n.Message)
	assert.Equal(t, "wrong tone", n.Payload["reason"])
}

func TestNotificationDeleteOld(t *testing.T) {
	repo := memory.NewNotificationRepository()
	ctx := context.Background()

	writer := NewNotificationService(NotificationDependencies{NotificationRepo: repo})
	read, err := writer.NotifyReplyApproved(ctx, "user-1", "reply-1", "Acme")
	require.NoError(t, err)
	_, err = writer.NotifyReplyApproved(ctx, "user-1", "reply-2", "Acme")
	require.NoError(t, err)
	_, err = writer.MarkAsRead(ctx, read.ID, "user-1")
	require.NoError(t, err)

	later := func() time.Time { return time.Now().UTC().AddDate(0, 0, 31) }
	sweeper := NewNotificationService(NotificationDependencies{NotificationRepo: repo, Now: later})

	deleted, err := sweeper.DeleteOldNotifications(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := sweeper.ListForUser(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, domain.NotificationDelivered, remaining[0].Status)
}
