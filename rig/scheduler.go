package rig

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler fires registered tasks at a fixed cadence. Overrun policy is
// skip: if a task is still executing when its next tick is due, that firing
// is dropped, logged at warn level and counted. Ticks are never queued and
// never reenter.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []*task
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

type task struct {
	name    string
	period  time.Duration
	fn      func()
	busy    sync.Mutex
	skipped uint64
	fired   uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{done: make(chan struct{})}
}

// AddTask registers fn to run every period. Must be called before Start.
func (s *Scheduler) AddTask(name string, period time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("AddTask after Start")
	}
	s.tasks = append(s.tasks, &task{name: name, period: period, fn: fn})
}

// Start launches one goroutine per task.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.run(t)
	}
}

// Stop halts firing and waits for any in-flight tick to finish. No tick
// body starts once Stop has begun.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Skipped returns the number of dropped firings for a task.
func (s *Scheduler) Skipped(name string) uint64 {
	if t := s.find(name); t != nil {
		return atomic.LoadUint64(&t.skipped)
	}
	return 0
}

// Fired returns the number of firings that actually ran a task.
func (s *Scheduler) Fired(name string) uint64 {
	if t := s.find(name); t != nil {
		return atomic.LoadUint64(&t.fired)
	}
	return 0
}

func (s *Scheduler) find(name string) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.name == name {
			return t
		}
	}
	return nil
}

func (s *Scheduler) run(t *task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			// a fire may already be pending when done closes and the
			// select can pick either ready case; teardown wins
			select {
			case <-s.done:
				return
			default:
			}
			if !t.busy.TryLock() {
				// previous tick still running
				atomic.AddUint64(&t.skipped, 1)
				logrus.WithFields(logrus.Fields{
					"task":   t.name,
					"period": t.period,
				}).Warn("tick overrun, skipping")
				continue
			}
			atomic.AddUint64(&t.fired, 1)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer t.busy.Unlock()
				t.fn()
			}()
		}
	}
}
