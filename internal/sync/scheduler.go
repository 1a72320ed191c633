package sync

import (
	"sync"
	"time"
)

// Scheduler runs staggered delayed passes, typically refreshes after a
// confirmed purchase. Each Schedule call starts a new generation and
// supersedes every pending pass of the prior one, so two rapid
// purchases never double the refresh traffic.
type Scheduler struct {
	mu     sync.Mutex
	gen    uint64
	timers []*time.Timer
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule arranges fn to run once per delay. Pending passes from a
// previous Schedule call are cancelled; a pass that fires anyway checks
// its generation and does nothing when superseded.
func (s *Scheduler) Schedule(delays []time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen

	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]

	for _, d := range delays {
		s.timers = append(s.timers, time.AfterFunc(d, func() {
			s.mu.Lock()
			live := s.gen == gen
			s.mu.Unlock()
			if live {
				fn()
			}
		}))
	}
}

// Cancel stops all pending passes.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]
}
