package voice

import (
	"context"
	"sync"
)

type handleState int

const (
	handleActive handleState = iota
	handleCancelled
	handleCompleted
)

// CancelHandle aborts one outgoing answer request. Cancel is a no-op once the
// request has completed or was already cancelled.
type CancelHandle struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	state  handleState
}

// NewCancelHandle derives the request context guarded by the returned handle.
func NewCancelHandle(parent context.Context) (context.Context, *CancelHandle) {
	ctx, cancel := context.WithCancel(parent)
	return ctx, &CancelHandle{cancel: cancel}
}

// Cancel aborts the request. It reports whether this call did the aborting.
func (h *CancelHandle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != handleActive {
		return false
	}
	h.state = handleCancelled
	h.cancel()
	return true
}

// Complete marks the request settled and releases its context.
func (h *CancelHandle) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == handleActive {
		h.state = handleCompleted
	}
	h.cancel()
}

func (h *CancelHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == handleCancelled
}
