package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/persistence"
	"github.com/crmdesk/reply-service/internal/service"
)

func TestMemoryModeCanCreateReplies(t *testing.T) {
	repos := newRepositories(&persistence.Postgres{}, zap.NewNop())
	ctx := context.Background()

	cso := &domain.User{Email: "cso@example.com", Name: "CSO", PasswordHash: "x", Role: domain.RoleCSO, IsActive: true}
	require.NoError(t, repos.users.Create(ctx, cso))

	replies := service.NewReplyService(service.ReplyDependencies{
		ReplyRepo:    repos.replies,
		FeedbackRepo: repos.feedback,
	})
	reply, err := replies.Create(ctx, domain.Actor{ID: cso.ID, Role: cso.Role}, service.ReplyCreateInput{
		FeedbackID: "00000000-0000-4000-8000-000000000001",
		Content:    "Sorry about the delay, a replacement ships today.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyStatusDraft, reply.Status)
}
