package voice

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned when work is posted after the loop stopped.
var ErrLoopClosed = errors.New("voice loop closed")

// Loop runs posted callbacks one at a time on a single goroutine. Controller
// state is only touched from inside these callbacks.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	notify chan struct{}
	done   chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn. It reports false when the loop has already stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes callbacks until ctx is cancelled. Pending callbacks are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}
}

// Step runs a single queued callback, waiting up to timeout for one to arrive.
func (l *Loop) Step(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if fn, ok := l.next(); ok {
			fn()
			return true
		}
		select {
		case <-l.notify:
		case <-timer.C:
			return false
		}
	}
}

// Drain runs callbacks until none arrive within idle.
func (l *Loop) Drain(idle time.Duration) int {
	count := 0
	for l.Step(idle) {
		count++
	}
	return count
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}
