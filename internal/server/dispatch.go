package server

import (
	"sync"
	"sync/atomic"
	"time"

	gaerrors "github.com/zogwei/greys-anatomy/internal/errors"
	"github.com/zogwei/greys-anatomy/internal/session"
)

// Task is one decoded command line bound to its session.  Created when
// the decoder emits a line, consumed exactly once by a pool worker.
type Task struct {
	Line    string
	Session *session.Session
}

// Pool executes tasks on an elastic set of workers: Submit never blocks
// behind a busy worker (a fresh one is spawned instead), and workers
// that sit idle past the timeout exit.  There is no upper bound on
// workers — sessions are few and commands are user-paced, so the
// exhaustion risk under adversarial load is accepted.
type Pool struct {
	run         func(Task)
	idleTimeout time.Duration

	tasks   chan Task
	done    chan struct{}
	stopped atomic.Bool
	workers atomic.Int32
	wg      sync.WaitGroup
}

// NewPool returns a pool that hands every task to run.
func NewPool(run func(Task), idleTimeout time.Duration) *Pool {
	return &Pool{
		run:         run,
		idleTimeout: idleTimeout,
		tasks:       make(chan Task),
		done:        make(chan struct{}),
	}
}

// Submit hands t to an idle worker, spawning one when none is waiting.
// It returns ErrPoolClosed after Stop.
func (p *Pool) Submit(t Task) error {
	if p.stopped.Load() {
		return gaerrors.ErrPoolClosed
	}

	// Fast path: an idle worker is already in receive.
	select {
	case p.tasks <- t:
		return nil
	default:
	}

	// Slow path: hand t straight to a fresh worker.  A channel send here
	// can be stolen by a racing Submit the moment the worker enters
	// receive, which would park the connection read path behind busy
	// workers.
	p.spawn(t)
	return nil
}

// Stop refuses further submissions and signals workers to exit once
// their current task finishes.  It does not wait: command execution is
// unbounded and externally controlled, so the exit path must not hang
// on it.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.done)
}

// Workers returns the current worker count.
func (p *Pool) Workers() int { return int(p.workers.Load()) }

// Quiesce waits up to d for all workers to exit.  Test helper.
func (p *Pool) Quiesce(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if p.workers.Load() == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return p.workers.Load() == 0
}

func (p *Pool) spawn(first Task) {
	p.wg.Add(1)
	p.workers.Add(1)
	go p.worker(first)
}

// worker runs its first task before entering the shared receive loop,
// so the Submit that spawned it returns without touching the channel.
func (p *Pool) worker(first Task) {
	defer p.wg.Done()
	defer p.workers.Add(-1)

	p.run(first)

	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case t := <-p.tasks:
			p.run(t)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.idleTimeout)
		case <-idle.C:
			return
		case <-p.done:
			return
		}
	}
}
