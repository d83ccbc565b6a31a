package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crmdesk/reply-service/internal/config"
)

// Sweeper is one retention step.
type Sweeper func(ctx context.Context) (int64, error)

// RetentionTask names a sweeper for logging.
type RetentionTask struct {
	Name string
	Run  Sweeper
}

// RetentionWorker runs its tasks once a day at a fixed local hour.
type RetentionWorker struct {
	hour   int
	tasks  []RetentionTask
	logger *zap.Logger
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewRetentionWorker builds a worker that fires at cfg.SweepHour.
func NewRetentionWorker(cfg config.RetentionConfig, logger *zap.Logger, tasks ...RetentionTask) *RetentionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionWorker{
		hour:   cfg.SweepHour,
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the schedule loop in a goroutine.
func (w *RetentionWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop ends the loop and waits for a running sweep to finish.
func (w *RetentionWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *RetentionWorker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		wait := NextRun(w.now(), w.hour).Sub(w.now())
		w.logger.Info("retention sweep scheduled", zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stop:
			timer.Stop()
			return
		case <-timer.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes every task. A failing task is logged and does not stop the rest.
func (w *RetentionWorker) RunOnce(ctx context.Context) map[string]int64 {
	results := make(map[string]int64, len(w.tasks))
	for _, task := range w.tasks {
		removed, err := w.runTask(ctx, task)
		if err != nil {
			w.logger.Error("retention task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		results[task.Name] = removed
		w.logger.Info("retention task finished", zap.String("task", task.Name), zap.Int64("removed", removed))
	}
	return results
}

func (w *RetentionWorker) runTask(ctx context.Context, task RetentionTask) (removed int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			removed, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}

// NextRun returns the next occurrence of hour:00 strictly after now, in now's location.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
