package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmdesk/reply-service/internal/config"
	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository/memory"
	"github.com/crmdesk/reply-service/internal/security"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

type authEnv struct {
	svc       *AuthService
	guard     *security.Guard
	users     *memory.UserRepository
	tokens    *memory.RefreshTokenRepository
	auditRepo *memory.AuditRepository
	clock     *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	users := memory.NewUserRepository()
	tokens := memory.NewRefreshTokenRepository()
	auditRepo := memory.NewAuditRepository()
	audit := NewAuditService(AuditDependencies{AuditRepo: auditRepo, Now: clock.Now})

	guard := security.NewGuard(config.BruteForceConfig{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Lockout:     30 * time.Minute,
		Store:       config.AttemptStoreMemory,
	}, security.NewMemoryAttemptStore(), audit, nil, security.WithClock(clock.Now))

	svc, err := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   7,
		BcryptCost:            bcrypt.MinCost,
	}, AuthDependencies{
		UserRepo:         users,
		RefreshTokenRepo: tokens,
		Guard:            guard,
		Audit:            audit,
		Now:              clock.Now,
	})
	require.NoError(t, err)

	return &authEnv{svc: svc, guard: guard, users: users, tokens: tokens, auditRepo: auditRepo, clock: clock}
}

func (e *authEnv) actions() []string {
	var out []string
	for _, entry := range e.auditRepo.Entries() {
		out = append(out, entry.Action)
	}
	return out
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "  Agent@Example.com ", "Agent", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com", user.Email)
	assert.Equal(t, domain.RoleCSO, user.Role)

	_, err = env.svc.Register(ctx, "agent@example.com", "Dup", "other")
	requireCode(t, err, apperrors.CodeConflict)

	result, err := env.svc.Login(ctx, "AGENT@example.com", "s3cret-pass", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	claims, err := env.svc.TokenManager().ParseToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	assert.Contains(t, env.actions(), domain.AuditLoginSuccess)
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, "agent@example.com", "wrong", "10.0.0.1")
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = env.svc.Login(ctx, "nobody@example.com", "wrong", "10.0.0.1")
	requireCode(t, err, apperrors.CodeUnauthorized)

	count, err := env.guard.AttemptCount(ctx, "agent@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuthLoginBlockedAfterRepeatedFailures(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = env.svc.Login(ctx, "agent@example.com", "wrong", "10.0.0.1")
		requireCode(t, err, apperrors.CodeUnauthorized)
	}
	assert.Contains(t, env.actions(), domain.AuditBruteForceDetected)

	_, err = env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	requireCode(t, err, apperrors.CodeRateLimited)

	// other ip is unaffected
	_, err = env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.2")
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)
	_, err = env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	require.NoError(t, err)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)
	login, err := env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	require.NoError(t, err)

	refreshed, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)
	assert.NotEmpty(t, refreshed.Tokens.AccessToken)

	_, err = env.svc.Refresh(ctx, login.Tokens.RefreshToken)
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = env.svc.Refresh(ctx, "not-a-token")
	requireCode(t, err, apperrors.CodeUnauthorized)

	env.clock.Advance(8 * 24 * time.Hour)
	_, err = env.svc.Refresh(ctx, refreshed.Tokens.RefreshToken)
	requireCode(t, err, apperrors.CodeUnauthorized)

	assert.Contains(t, env.actions(), domain.AuditRefreshSuccess)
	assert.Contains(t, env.actions(), domain.AuditRefreshFailed)
}

func TestAuthConcurrentRefreshSingleWinner(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)
	login, err := env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestAuthLogout(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)
	first, err := env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	require.NoError(t, err)
	second, err := env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.2")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, user.ID, first.Tokens.RefreshToken))
	_, err = env.svc.Refresh(ctx, first.Tokens.RefreshToken)
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = env.svc.Refresh(ctx, second.Tokens.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, user.ID, ""))
	assert.Contains(t, env.actions(), domain.AuditLogout)
}

func TestAuthInactiveUserCannotLogin(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, env.users.Create(ctx, &domain.User{
		Email:        "gone@example.com",
		Name:         "Gone",
		PasswordHash: string(hash),
		Role:         domain.RoleCSO,
		IsActive:     false,
	}))

	_, err = env.svc.Login(ctx, "gone@example.com", "right", "10.0.0.1")
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestAuthCleanupExpiredTokens(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "agent@example.com", "Agent", "right")
	require.NoError(t, err)
	_, err = env.svc.Login(ctx, "agent@example.com", "right", "10.0.0.1")
	require.NoError(t, err)

	deleted, err := env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	env.clock.Advance(8 * 24 * time.Hour)
	deleted, err = env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
