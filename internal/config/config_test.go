package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BRUTE_FORCE_MAX_ATTEMPTS", "")
	t.Setenv("BRUTE_FORCE_WINDOW_MS", "")
	t.Setenv("BRUTE_FORCE_LOCKOUT_MS", "")
	t.Setenv("BRUTE_FORCE_STORE", "")
	t.Setenv("AUDIT_RETENTION_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.BruteForce.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.BruteForce.Window)
	assert.Equal(t, 30*time.Minute, cfg.BruteForce.Lockout)
	assert.Equal(t, AttemptStoreMemory, cfg.BruteForce.Store)
	assert.Equal(t, 90, cfg.Retention.AuditDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BRUTE_FORCE_MAX_ATTEMPTS", "3")
	t.Setenv("BRUTE_FORCE_WINDOW_MS", "60000")
	t.Setenv("BRUTE_FORCE_LOCKOUT_MS", "120000")
	t.Setenv("BRUTE_FORCE_STORE", "Redis")
	t.Setenv("RETENTION_SWEEP_HOUR", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.BruteForce.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.BruteForce.Window)
	assert.Equal(t, 2*time.Minute, cfg.BruteForce.Lockout)
	assert.Equal(t, AttemptStoreRedis, cfg.BruteForce.Store)
	assert.Equal(t, 4, cfg.Retention.SweepHour)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("BRUTE_FORCE_STORE", "etcd")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("lockout shorter than window", func(t *testing.T) {
		t.Setenv("BRUTE_FORCE_STORE", "")
		t.Setenv("BRUTE_FORCE_WINDOW_MS", "600000")
		t.Setenv("BRUTE_FORCE_LOCKOUT_MS", "60000")
		_, err := Load()
		require.Error(t, err)
	})
}
