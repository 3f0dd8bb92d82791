// Package scheduler provides the bounded scheduler gating external AI
// invocations. It enforces a maximum number of concurrently running tasks
// and a minimum spacing between task dispatches to respect provider rate
// limits.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// BoundedScheduler throttles task execution. All per-conversation
// analyze-and-score tasks of a job are submitted through one scheduler
// instance; the processing phase completes only when Wait returns.
type BoundedScheduler struct {
	slots      chan struct{}
	minSpacing time.Duration

	mu           sync.Mutex
	lastDispatch time.Time

	wg sync.WaitGroup
}

// New creates a scheduler with the given concurrency bound and minimum
// dispatch spacing. Non-positive values fall back to a bound of 1 and no
// spacing.
func New(maxConcurrency int, minSpacing time.Duration) *BoundedScheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if minSpacing < 0 {
		minSpacing = 0
	}
	return &BoundedScheduler{
		slots:      make(chan struct{}, maxConcurrency),
		minSpacing: minSpacing,
	}
}

// Submit blocks until a slot is free and the spacing since the previous
// dispatch has elapsed, then runs task on its own goroutine. It returns
// the context error without dispatching if ctx is done first. A task that
// was dispatched always runs to completion, even if ctx is cancelled
// afterwards.
func (s *BoundedScheduler) Submit(ctx context.Context, task func()) error {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.waitForSpacing(ctx); err != nil {
		<-s.slots
		return err
	}

	s.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("Scheduled task panicked: %v", r)
			}
			<-s.slots
			s.wg.Done()
		}()
		task()
	}()
	return nil
}

// waitForSpacing sleeps until minSpacing has elapsed since the previous
// dispatch, then records the new dispatch time.
func (s *BoundedScheduler) waitForSpacing(ctx context.Context) error {
	if s.minSpacing == 0 {
		s.mu.Lock()
		s.lastDispatch = time.Now()
		s.mu.Unlock()
		return nil
	}

	for {
		s.mu.Lock()
		now := time.Now()
		wait := s.minSpacing - now.Sub(s.lastDispatch)
		if wait <= 0 {
			s.lastDispatch = now
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Wait blocks until every dispatched task has finished, success or
// failure.
func (s *BoundedScheduler) Wait() {
	s.wg.Wait()
}
