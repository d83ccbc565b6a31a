package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/auth"
	"github.com/crmdesk/reply-service/internal/config"
	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

const invalidCredentialsMessage = "Invalid credentials"

// LoginGuard is the brute-force protection the login flow consults.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) (bool, error)
}

// Auditor writes audit entries without failing the caller.
type Auditor interface {
	Log(ctx context.Context, actorID, action, resource string, metadata map[string]any)
	LogAnonymous(ctx context.Context, action, resource string, metadata map[string]any)
}

// AuthService coordinates registration, login and token rotation.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	guard      LoginGuard
	audit      Auditor
	tokenMgr   *auth.TokenManager
	bcryptCost int
	refreshTTL time.Duration
	dummyHash  string
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Guard            LoginGuard
	Audit            Auditor
	Logger           *zap.Logger
	Now              func() time.Time
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	// Compared against when the email is unknown so both paths cost one bcrypt check.
	dummyHash, err := auth.HashPassword("not-a-real-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.RefreshTokenRepo,
		guard:      deps.Guard,
		audit:      deps.Audit,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		refreshTTL: cfg.RefreshTokenTTL(),
		dummyHash:  dummyHash,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}, nil
}

// TokenManager exposes the JWT manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a CSO account.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("user with this email already exists", map[string]any{"email": email})
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleCSO,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login authenticates a user. A blocked (email, ip) pair is refused before the
// password is checked.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	email = normalizeEmail(email)

	blocked, err := s.guard.IsBlocked(ctx, email, ip)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if blocked {
		s.audit.LogAnonymous(ctx, domain.AuditLoginFailed, domain.AuditResourceAuth, map[string]any{
			"email":  email,
			"ip":     ip,
			"reason": "rate_limited",
		})
		return nil, apperrors.NewRateLimited("Too many failed login attempts. Try again later.")
	}

	user, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeUnauthorized) {
			s.recordAttempt(ctx, email, ip, false)
			s.audit.LogAnonymous(ctx, domain.AuditLoginFailed, domain.AuditResourceAuth, map[string]any{
				"email": email,
				"ip":    ip,
			})
		}
		return nil, err
	}
	s.recordAttempt(ctx, email, ip, true)

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, user.ID, domain.AuditLoginSuccess, domain.UserResource(user.ID), map[string]any{"ip": ip})
	return &LoginResult{User: user, Tokens: *tokens}, nil
}

// Refresh exchanges a refresh token for a new access token and a rotated refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	hash := auth.HashToken(refreshToken)
	now := s.now()

	record, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, s.refreshFailed(ctx, "Invalid refresh token", "unknown")
		}
		return nil, apperrors.MapError(err)
	}
	if !record.Usable(now) {
		if record.RotatedAt != nil {
			s.logger.Warn("rotated refresh token presented", zap.String("user_id", record.UserID))
			return nil, s.refreshFailed(ctx, "Refresh token has been rotated", "rotated")
		}
		return nil, s.refreshFailed(ctx, "Invalid refresh token", "expired")
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, s.refreshFailed(ctx, "Invalid refresh token", "user_missing")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, s.refreshFailed(ctx, "Invalid refresh token", "user_inactive")
	}

	newToken, newHash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	next := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: newHash,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.tokens.Rotate(ctx, record.ID, now, next); err != nil {
		if repository.IsNotFound(err) {
			return nil, s.refreshFailed(ctx, "Refresh token has been rotated", "rotated")
		}
		return nil, apperrors.MapError(err)
	}

	accessToken, accessExp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.audit.Log(ctx, user.ID, domain.AuditRefreshSuccess, domain.UserResource(user.ID), nil)
	return &LoginResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:      accessToken,
			AccessExpiresAt:  accessExp,
			RefreshToken:     newToken,
			RefreshExpiresAt: next.ExpiresAt,
		},
	}, nil
}

// Logout revokes one refresh token, or every token of the user when refreshToken is empty.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	var (
		revoked int64
		err     error
		scope   = "all"
	)
	if refreshToken != "" {
		scope = "single"
		revoked, err = s.tokens.DeleteByUserAndHash(ctx, userID, auth.HashToken(refreshToken))
	} else {
		revoked, err = s.tokens.DeleteByUser(ctx, userID)
	}
	if err != nil {
		return apperrors.MapError(err)
	}

	s.audit.Log(ctx, userID, domain.AuditLogout, domain.UserResource(userID), map[string]any{
		"scope":   scope,
		"revoked": revoked,
	})
	return nil
}

// CleanupExpiredTokens deletes expired tokens and tokens rotated more than a TTL ago.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	now := s.now()
	deleted, err := s.tokens.DeleteStale(ctx, now, now.Add(-s.refreshTTL))
	if err != nil {
		return 0, err
	}
	s.logger.Info("refresh token sweep", zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *AuthService) verifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
		_ = auth.ComparePassword(s.dummyHash, password)
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, accessExp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	refreshToken, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	record := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &domain.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, email, ip string, success bool) {
	if _, err := s.guard.RecordLoginAttempt(ctx, email, ip, success); err != nil {
		s.logger.Error("failed to record login attempt", zap.String("ip", ip), zap.Error(err))
	}
}

func (s *AuthService) refreshFailed(ctx context.Context, message, reason string) error {
	s.audit.LogAnonymous(ctx, domain.AuditRefreshFailed, domain.AuditResourceAuth, map[string]any{"reason": reason})
	return apperrors.NewUnauthorized(message)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
