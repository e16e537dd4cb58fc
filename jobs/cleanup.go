// Package jobs runs the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is how often expired device sessions are swept when no
// interval is configured.
const DefaultInterval = time.Minute

// Task is a sweep that reports how many entries it removed.
type Task func(ctx context.Context) (int, error)

// CleanupJob runs a Task on a fixed interval until stopped. A failed run is
// logged and the next tick runs as usual.
type CleanupJob struct {
	name     string
	task     Task
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleanupJob creates a job named name that runs task every interval. A
// non-positive interval falls back to DefaultInterval.
func NewCleanupJob(name string, task Task, interval time.Duration, logger *slog.Logger) *CleanupJob {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &CleanupJob{
		name:     name,
		task:     task,
		interval: interval,
		logger:   logger.With("component", "cleanup", "job", name),
	}
}

// Start launches the loop in a goroutine. It returns immediately; calling
// Start on a running job is a no-op.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.loop(ctx, j.done)
	j.logger.Info("cleanup job started", "interval", j.interval.String())
}

// Stop ends the loop and waits for an in-flight run to finish.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	j.logger.Info("cleanup job stopped")
}

func (j *CleanupJob) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce runs the task a single time and returns the number of removed
// entries. Errors are logged, not returned.
func (j *CleanupJob) RunOnce(ctx context.Context) int {
	removed, err := j.task(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return removed
	case err != nil:
		j.logger.ErrorContext(ctx, "cleanup run failed", "error", err, "removed", removed)
	case removed > 0:
		j.logger.InfoContext(ctx, "cleanup run finished", "removed", removed)
	default:
		j.logger.DebugContext(ctx, "cleanup run finished", "removed", 0)
	}
	return removed
}
