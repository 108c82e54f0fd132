package client

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/httplayer/internal/session"
	"github.com/GriffinCanCode/httplayer/internal/transport"
)

// Handle controls a started transfer and exposes its outcome
type Handle struct {
	transfer *session.Transfer

	mu   sync.Mutex
	resp *Response
	err  error
	done chan struct{}
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(resp *Response, err error) {
	h.mu.Lock()
	h.resp, h.err = resp, err
	h.mu.Unlock()
	close(h.done)
}

// ID identifies the transfer
func (h *Handle) ID() transport.TaskID { return h.transfer.ID() }

func (h *Handle) State() session.State { return h.transfer.State() }

func (h *Handle) Suspend() { h.transfer.Suspend() }

func (h *Handle) Resume() { h.transfer.Resume() }

// Cancel aborts the transfer; it completes with session.ErrCancelled unless
// it already finished.
func (h *Handle) Cancel() { h.transfer.Cancel(nil) }

// Done is closed when the outcome is available
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the outcome, or nil, nil while the transfer is running.
func (h *Handle) Result() (*Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resp, h.err
}

// Wait blocks until the transfer completes or ctx is done. Giving up on ctx
// does not cancel the transfer.
func (h *Handle) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-h.done:
		return h.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
