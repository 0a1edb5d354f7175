// Package sched drives the task store's periodic evaluators with real
// timers. The business rules live in the store's tick methods; this
// package only supplies the cadence, which keeps the rules testable
// against a fake clock.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/daily-todo/internal/todo"
)

// Default evaluator cadences. The reset check must run at least once per
// minute to bound reset delay; the reminder check is deliberately
// hourly (coarser, per the reminder rule's at-most-approximate
// guarantee); the celebration check is a cheap safety net on top of the
// mutation-time checks.
const (
	DefaultResetInterval       = time.Minute
	DefaultReminderInterval    = time.Hour
	DefaultCelebrationInterval = 5 * time.Second
)

// Scheduler runs one goroutine per evaluator, each on its own ticker.
// All tickers stop together.
type Scheduler struct {
	store  *todo.Store
	logger *log.Logger

	resetInterval       time.Duration
	reminderInterval    time.Duration
	celebrationInterval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a scheduler with the default cadences.
func New(store *todo.Store, logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:               store,
		logger:              logger,
		resetInterval:       DefaultResetInterval,
		reminderInterval:    DefaultReminderInterval,
		celebrationInterval: DefaultCelebrationInterval,
	}
}

// Start launches the evaluator goroutines. Each evaluator also runs
// once immediately, so a daemon started past the reset threshold resets
// without waiting a full tick. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	go s.loop(s.resetInterval, s.tickReset)
	go s.loop(s.reminderInterval, s.tickReminder)
	go s.loop(s.celebrationInterval, s.tickCelebration)
}

// Stop halts all evaluator goroutines. Stopping twice is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// loop runs fn immediately and then on every tick until Stop.
func (s *Scheduler) loop(interval time.Duration, fn func()) {
	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (s *Scheduler) tickReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.TickReset(ctx, time.Now()); err != nil {
		s.logger.Error("reset evaluator failed", "err", err)
	}
}

func (s *Scheduler) tickReminder() {
	s.store.TickReminder(time.Now())
}

func (s *Scheduler) tickCelebration() {
	s.store.TickCelebration()
}
