package domain

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const defaultRestartDelay = 5 * time.Second

// RestartPolicy controls what the supervisor does when a worker run ends.
type RestartPolicy int

const (
	// RestartNever reaps the worker on any exit. Scheduled respawns are the
	// only retry for workers with this policy.
	RestartNever RestartPolicy = iota
	// RestartOnFault relaunches a fresh worker after a faulted exit. Clean
	// stops are still reaped, so an exhausted sweep stays down until its
	// next scheduled trigger.
	RestartOnFault
)

// Worker is one supervised unit of work. A nil return is a clean stop; any
// other error is a fault.
type Worker interface {
	Run(ctx context.Context) error
}

// Spec describes how the supervisor builds and restarts one named worker.
// New must return a worker in its initial state: restarts never resume,
// they rebuild, because all worker state is re-derivable from the ledger.
type Spec struct {
	Name    string
	Restart RestartPolicy
	New     func() Worker
}

// Supervisor runs named workers one-for-one: at most one live instance per
// name, faults isolated to their own worker, and faulted instances
// relaunched from a clean slate when their spec asks for it.
type Supervisor struct {
	restartDelay time.Duration
	logf         func(string, ...any)

	mu   sync.Mutex
	live map[string]bool
	wg   sync.WaitGroup
}

// NewSupervisor builds a supervisor with the given delay between a faulted
// exit and its restart.
func NewSupervisor(restartDelay time.Duration, logf func(string, ...any)) *Supervisor {
	if restartDelay <= 0 {
		restartDelay = defaultRestartDelay
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Supervisor{
		restartDelay: restartDelay,
		logf:         logf,
		live:         make(map[string]bool),
	}
}

// Spawn launches the spec's worker unless an instance with the same name is
// already live. It reports whether a new instance was started.
func (s *Supervisor) Spawn(ctx context.Context, spec Spec) bool {
	s.mu.Lock()
	if s.live[spec.Name] {
		s.mu.Unlock()
		s.logf("supervisor: %s is already running", spec.Name)
		return false
	}
	s.live[spec.Name] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.live, spec.Name)
			s.mu.Unlock()
		}()
		s.supervise(ctx, spec)
	}()
	return true
}

// Running reports whether a worker with the given name is currently live.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[name]
}

// Wait blocks until every live worker has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) supervise(ctx context.Context, spec Spec) {
	for {
		err := spec.New().Run(ctx)
		switch {
		case err == nil:
			s.logf("supervisor: %s stopped", spec.Name)
			return
		case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Shutdown, not a fault.
			return
		default:
			s.logf("supervisor: %s faulted: %v", spec.Name, err)
			if spec.Restart != RestartOnFault {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.restartDelay):
		}
	}
}
