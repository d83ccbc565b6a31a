// Package security detects brute-force login attempts per (email, ip) pair.
package security

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/config"
	"github.com/crmdesk/reply-service/internal/domain"
)

// AttemptStore keeps the attempt history of each key. Implementations serialise
// the read-modify-write of a single key.
type AttemptStore interface {
	// Record drops attempts at or before pruneBefore, appends attempt and returns
	// the number of failures after windowStart.
	Record(ctx context.Context, key string, attempt domain.LoginAttempt, pruneBefore, windowStart time.Time) (int, error)
	// CountFailures returns the number of failures after windowStart without modifying the key.
	CountFailures(ctx context.Context, key string, windowStart time.Time) (int, error)
	// Sweep drops attempts at or before pruneBefore across all keys and evicts empty keys.
	Sweep(ctx context.Context, pruneBefore time.Time) (int, error)
}

// Auditor records pre-authentication security events.
type Auditor interface {
	LogAnonymous(ctx context.Context, action, resource string, metadata map[string]any)
}

// Guard decides whether login attempts for an (email, ip) pair are allowed.
type Guard struct {
	store  AttemptStore
	audit  Auditor
	logger *zap.Logger
	cfg    config.BruteForceConfig
	now    func() time.Time
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// NewGuard builds a guard on top of store.
func NewGuard(cfg config.BruteForceConfig, store AttemptStore, audit Auditor, logger *zap.Logger, opts ...GuardOption) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{
		store:  store,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RecordLoginAttempt stores the attempt and returns false once the failures in the
// window reach the configured maximum. Detection does not reset the history.
func (g *Guard) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) (bool, error) {
	now := g.now()
	attempt := domain.LoginAttempt{Email: email, IP: ip, Timestamp: now, Success: success}

	failures, err := g.store.Record(ctx, attemptKey(email, ip), attempt, now.Add(-g.cfg.Lockout), now.Add(-g.cfg.Window))
	if err != nil {
		return false, fmt.Errorf("record login attempt: %w", err)
	}

	if failures >= g.cfg.MaxAttempts {
		g.onDetected(ctx, email, ip, failures, now)
		return false, nil
	}
	return true, nil
}

// IsBlocked reports whether failures in the window have reached the maximum.
func (g *Guard) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	failures, err := g.AttemptCount(ctx, email, ip)
	if err != nil {
		return false, err
	}
	return failures >= g.cfg.MaxAttempts, nil
}

// AttemptCount returns the failures recorded inside the window.
func (g *Guard) AttemptCount(ctx context.Context, email, ip string) (int, error) {
	now := g.now()
	failures, err := g.store.CountFailures(ctx, attemptKey(email, ip), now.Add(-g.cfg.Window))
	if err != nil {
		return 0, fmt.Errorf("count login attempts: %w", err)
	}
	return failures, nil
}

// Sweep evicts history older than the lockout period.
func (g *Guard) Sweep(ctx context.Context) (int, error) {
	return g.store.Sweep(ctx, g.now().Add(-g.cfg.Lockout))
}

func (g *Guard) onDetected(ctx context.Context, email, ip string, failures int, at time.Time) {
	g.logger.Warn("brute force attack detected",
		zap.String("email", email),
		zap.String("ip", ip),
		zap.Int("attempts", failures))

	if g.audit == nil {
		return
	}
	g.audit.LogAnonymous(ctx, domain.AuditBruteForceDetected, domain.AuditResourceSecurity, map[string]any{
		"email":        email,
		"ip":           ip,
		"attemptCount": failures,
		"timestamp":    at.UTC().Format(time.RFC3339Nano),
	})
}

// attemptKey length-prefixes the email, since both an IPv6 address and a quoted
// local part may contain ':'.
func attemptKey(email, ip string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return strconv.Itoa(len(email)) + ":" + email + ":" + ip
}
