package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository/memory"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

type brokenAuditRepo struct {
	*memory.AuditRepository
}

func (brokenAuditRepo) Create(context.Context, *domain.AuditLogEntry) error {
	return errors.New("disk full")
}

func TestAuditLogSwallowsWriteErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := NewAuditService(AuditDependencies{
		AuditRepo: brokenAuditRepo{memory.NewAuditRepository()},
		Logger:    zap.New(core),
	})

	assert.NotPanics(t, func() {
		svc.Log(context.Background(), "user-1", domain.AuditLogout, domain.UserResource("user-1"), nil)
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to write audit log", logs.All()[0].Message)
}

func TestAuditListAndGet(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(AuditDependencies{AuditRepo: repo})
	ctx := context.Background()

	svc.Log(ctx, "user-1", domain.AuditLoginSuccess, domain.UserResource("user-1"), map[string]any{"ip": "1.1.1.1"})
	svc.Log(ctx, "user-2", domain.AuditLoginSuccess, domain.UserResource("user-2"), nil)
	svc.LogAnonymous(ctx, domain.AuditLoginFailed, domain.AuditResourceAuth, map[string]any{"email": "x@example.com"})

	page, err := svc.List(ctx, AuditQuery{Action: "LOGIN", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, domain.AuditLoginFailed, page.Entries[0].Action)
	assert.Nil(t, page.Entries[0].ActorID)

	actor := "user-1"
	page, err = svc.List(ctx, AuditQuery{ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	entry, err := svc.Get(ctx, page.Entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", entry.Metadata["ip"])

	_, err = svc.Get(ctx, "missing")
	requireCode(t, err, apperrors.CodeNotFound)

	activity, err := svc.UserActivity(ctx, "user-2", 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
}

func TestAuditCleanupOlderThan(t *testing.T) {
	repo := memory.NewAuditRepository()
	ctx := context.Background()

	old := &domain.AuditLogEntry{Action: domain.AuditLogout, Resource: "user:1", CreatedAt: time.Now().UTC().AddDate(0, 0, -120)}
	require.NoError(t, repo.Create(ctx, old))
	svc := NewAuditService(AuditDependencies{AuditRepo: repo})
	svc.Log(ctx, "user-1", domain.AuditLogout, "user:1", nil)

	deleted, err := svc.CleanupOlderThan(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, repo.Entries(), 1)
}
