package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crmdesk/reply-service/internal/config"
)

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("test", 3600)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before hour", time.Date(2025, 1, 10, 1, 30, 0, 0, loc), time.Date(2025, 1, 10, 2, 0, 0, 0, loc)},
		{"exactly at hour", time.Date(2025, 1, 10, 2, 0, 0, 0, loc), time.Date(2025, 1, 11, 2, 0, 0, 0, loc)},
		{"after hour", time.Date(2025, 1, 10, 23, 59, 0, 0, loc), time.Date(2025, 1, 11, 2, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 1, 31, 3, 0, 0, 0, loc), time.Date(2025, 2, 1, 2, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextRun(tc.now, 2))
		})
	}
}

func TestRunOnceContinuesAfterFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	var ran []string

	w := NewRetentionWorker(config.RetentionConfig{SweepHour: 2}, zap.New(core),
		RetentionTask{Name: "audit", Run: func(context.Context) (int64, error) {
			ran = append(ran, "audit")
			return 0, errors.New("db down")
		}},
		RetentionTask{Name: "panicky", Run: func(context.Context) (int64, error) {
			ran = append(ran, "panicky")
			panic("boom")
		}},
		RetentionTask{Name: "notifications", Run: func(context.Context) (int64, error) {
			ran = append(ran, "notifications")
			return 4, nil
		}},
	)

	results := w.RunOnce(context.Background())

	assert.Equal(t, []string{"audit", "panicky", "notifications"}, ran)
	assert.Equal(t, map[string]int64{"notifications": 4}, results)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "retention task failed", logs.All()[0].Message)
}

func TestRetentionWorkerFiresAndStops(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := NewRetentionWorker(config.RetentionConfig{SweepHour: 2}, nil,
		RetentionTask{Name: "tick", Run: func(context.Context) (int64, error) {
			select {
			case fired <- struct{}{}:
			default:
			}
			return 1, nil
		}},
	)
	// one millisecond before the sweep hour
	base := time.Date(2025, 1, 10, 1, 59, 59, 999_000_000, time.UTC)
	start := time.Now()
	w.now = func() time.Time { return base.Add(time.Since(start)) }

	w.Start(context.Background())
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("retention sweep did not run")
	}
	w.Stop()
}
