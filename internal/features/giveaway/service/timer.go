package service

import (
	"fmt"
	"sync"
	"time"
)

// Scheduler runs single-shot delayed callbacks keyed by giveaway id. Each
// callback runs on its own goroutine and fires at most once.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	onError func(id string, err error)
	// running counts callbacks in flight; Add happens under mu while not stopped.
	running sync.WaitGroup
}

// NewScheduler creates a scheduler. onError receives callback failures and
// recovered panics; it may be nil.
func NewScheduler(onError func(id string, err error)) *Scheduler {
	return &Scheduler{
		timers:  make(map[string]*time.Timer),
		onError: onError,
	}
}

// Schedule arranges for fn to run once after d.
func (s *Scheduler) Schedule(id string, d time.Duration, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrTimerStopped
	}
	if _, exists := s.timers[id]; exists {
		return fmt.Errorf("%w: %s", ErrTimerExists, id)
	}
	if d < 0 {
		d = 0
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		// Cancel or Stop may have won the race with the runtime firing us.
		if cur, ok := s.timers[id]; !ok || cur != t || s.stopped {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.running.Add(1)
		s.mu.Unlock()
		defer s.running.Done()
		s.run(id, fn)
	})
	s.timers[id] = t
	return nil
}

// Cancel stops the pending callback for id. It is safe to call any number of
// times and reports whether a pending callback was removed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	return true
}

// Pending returns the number of callbacks that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending callback, rejects new ones and waits for
// callbacks already running. It must not be called from a callback.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.running.Wait()
}

func (s *Scheduler) run(id string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.report(id, fmt.Errorf("timer callback panicked: %v", r))
		}
	}()
	if err := fn(); err != nil {
		s.report(id, err)
	}
}

func (s *Scheduler) report(id string, err error) {
	if s.onError != nil {
		s.onError(id, err)
	}
}
