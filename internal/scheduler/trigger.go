// Package scheduler runs the automated monthly newsletter: on a
// configured day and hour of every month it builds a campaign from the
// most recently updated template and sends it.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ironlady/newsletter-platform/internal/pkg/distlock"
	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
)

// Job is the unit of work a Trigger fires. Errors are logged and the
// trigger keeps ticking; a failed month is not retried until the next
// firing window.
type Job interface {
	Run(ctx context.Context, now time.Time) error
}

// Trigger fires its Job once per month, on the configured day and hour.
// It checks hourly, so a process that was down during the exact hour
// still fires when it comes back within the same hour window.
type Trigger struct {
	job        Job
	dayOfMonth int
	hour       int
	interval   time.Duration
	lock       distlock.DistLock

	lastFired string // "2006-01" of the last successful firing
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithInterval overrides the tick interval. Used by tests.
func WithInterval(d time.Duration) Option {
	return func(t *Trigger) { t.interval = d }
}

// WithLock makes firings mutually exclusive across processes. When the
// lock is held elsewhere the firing is skipped and the month is marked
// done locally, since the lock holder is sending it. A successful firing
// keeps the lock for the rest of the window, so the lock's TTL must be
// at least as long as the firing hour.
func WithLock(lock distlock.DistLock) Option {
	return func(t *Trigger) { t.lock = lock }
}

// NewTrigger creates a monthly trigger. dayOfMonth is clamped to 1..28
// so the firing exists in every month.
func NewTrigger(job Job, dayOfMonth, hour int, opts ...Option) *Trigger {
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	if dayOfMonth > 28 {
		dayOfMonth = 28
	}
	if hour < 0 || hour > 23 {
		hour = 9
	}
	t := &Trigger{
		job:        job,
		dayOfMonth: dayOfMonth,
		hour:       hour,
		interval:   time.Hour,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the tick loop. Call Stop to shut it down.
func (t *Trigger) Start() {
	go t.loop()
	logger.Info("scheduler started", "day_of_month", t.dayOfMonth, "hour", t.hour)
}

// Stop terminates the tick loop and waits for it to exit.
func (t *Trigger) Stop() {
	close(t.stopCh)
	<-t.doneCh
	logger.Info("scheduler stopped")
}

func (t *Trigger) loop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// Check immediately so a restart inside the firing hour still sends.
	t.Tick(context.Background(), time.Now())

	for {
		select {
		case <-ticker.C:
			t.Tick(context.Background(), time.Now())
		case <-t.stopCh:
			return
		}
	}
}

// Tick evaluates one firing window. Exported so tests can drive the
// trigger synchronously with a fixed clock.
func (t *Trigger) Tick(ctx context.Context, now time.Time) {
	if now.Day() != t.dayOfMonth || now.Hour() != t.hour {
		return
	}
	month := now.Format("2006-01")
	if t.lastFired == month {
		return
	}

	if t.lock != nil {
		acquired, err := t.lock.Acquire(ctx)
		if err != nil {
			logger.Error("scheduler lock error", "error", err.Error())
			return
		}
		if !acquired {
			// Another process is sending this month's newsletter.
			t.lastFired = month
			return
		}
	}

	if err := t.fire(ctx, now); err != nil {
		logger.Error("scheduler firing failed", "month", month, "error", err.Error())
		// Free the lock so this window can be retried, here or elsewhere.
		if t.lock != nil {
			if relErr := t.lock.Release(ctx); relErr != nil {
				logger.Warn("scheduler lock release failed", "error", relErr.Error())
			}
		}
		return
	}

	// After a successful firing the lock is deliberately NOT released: the
	// lastFired latch is per-process, so a peer ticking later in the same
	// window would find a freed lock and send the month again. The lock's
	// TTL must cover the firing window; it expires on its own.
	t.lastFired = month
}

// fire runs the job with panic containment so a bad firing never kills
// the tick loop.
func (t *Trigger) fire(ctx context.Context, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler job panic: %v", r)
		}
	}()
	return t.job.Run(ctx, now)
}
