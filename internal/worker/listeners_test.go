package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/repository/memory"
	"github.com/crmdesk/reply-service/internal/service"
)

func TestStartListenersWiresSideEffects(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	auditRepo := memory.NewAuditRepository()
	notifRepo := memory.NewNotificationRepository()

	audit := service.NewAuditService(service.AuditDependencies{AuditRepo: auditRepo})
	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notifRepo,
		UserRepo:         memory.NewUserRepository(),
		Dispatcher:       dispatcher,
	})
	StartListeners(dispatcher, audit, notifications)

	comment := "ship it"
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "evt-1",
		Type:      events.EventReplyApproved,
		ReplyID:   "reply-1",
		Actor:     events.Actor{UserID: "manager-1", Role: domain.RoleManager},
		Timestamp: time.Now(),
		Payload: events.ReplyPayload{
			FeedbackID:   "fb-1",
			SubmittedBy:  "cso-1",
			CustomerName: "Acme",
			OldStatus:    domain.ReplyStatusSubmitted,
			NewStatus:    domain.ReplyStatusApproved,
			Comment:      &comment,
		},
	}))

	entries := auditRepo.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditReplyApproved, entries[0].Action)
	assert.Equal(t, domain.ReplyResource("reply-1"), entries[0].Resource)

	inbox, err := notifications.ListForUser(ctx, "cso-1", nil)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, domain.NotificationReplyApproved, inbox[0].Type)
}
