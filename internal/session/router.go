package session

import (
	"fmt"

	"github.com/GriffinCanCode/httplayer/internal/transport"
	"go.uber.org/zap"
)

// router receives transport events for one Session and applies them to the
// owning Transfer on the session's serial queue.
type router struct {
	s *Session
}

var _ transport.Delegate = (*router)(nil)

func (r *router) lookup(task transport.Task, event string) (*Transfer, bool) {
	t, ok := r.s.Transfer(task.ID())
	if !ok {
		r.s.log.Debug("dropping event for unknown task",
			zap.String("event", event),
			zap.String("task", string(task.ID())),
		)
	}
	return t, ok
}

func (r *router) DidBecomeInvalid(err error) {
	r.s.queue.Async(func() { r.s.teardown(err) })
}

func (r *router) DidSendBodyData(task transport.Task, bytesSent, totalBytesSent, totalBytesExpected int64) {
	r.s.metrics.AddBytesSent(bytesSent)
	r.s.queue.Async(func() {
		if t, ok := r.lookup(task, "body sent"); ok {
			t.performProgress(totalBytesSent, totalBytesExpected)
		}
	})
}

func (r *router) DidComplete(task transport.Task, err error) {
	r.s.queue.Async(func() {
		if t, ok := r.lookup(task, "complete"); ok {
			t.performCompletion(err)
		}
	})
}

// DidReceiveResponse answers synchronously: tasks without a live transfer
// are cancelled.
func (r *router) DidReceiveResponse(task transport.Task, resp *transport.Response) transport.Disposition {
	disposition := transport.Cancel
	r.s.queue.Sync(func() {
		if t, ok := r.lookup(task, "response"); ok && t.updateHeaders(resp) {
			disposition = transport.Allow
		}
	})
	return disposition
}

func (r *router) DidReceiveData(task transport.Task, data []byte) {
	r.s.metrics.AddBytesReceived(len(data))
	r.s.queue.Async(func() {
		if t, ok := r.lookup(task, "data"); ok {
			t.updateBody(data)
		}
	})
}

// DidFinishDownloading relocates before returning, since the transport
// deletes location afterwards.
func (r *router) DidFinishDownloading(task transport.Task, location string) {
	r.s.queue.Sync(func() {
		t, ok := r.lookup(task, "download finished")
		if !ok {
			return
		}
		if t.destination == "" {
			t.recordError(ErrFileRelocation)
			return
		}
		if err := r.s.files.Relocate(location, t.destination); err != nil {
			r.s.log.Warn("download relocation failed",
				zap.String("task", string(t.id)),
				zap.String("destination", t.destination),
				zap.Error(err),
			)
			t.recordError(fmt.Errorf("%w: %w", ErrFileRelocation, err))
			return
		}
		t.updateFile(t.destination)
	})
}

func (r *router) DidWriteData(task transport.Task, bytesWritten, totalBytesWritten, totalBytesExpected int64) {
	r.s.metrics.AddBytesReceived(int(bytesWritten))
	r.s.queue.Async(func() {
		if t, ok := r.lookup(task, "data written"); ok {
			t.performProgress(totalBytesWritten, totalBytesExpected)
		}
	})
}

func (r *router) DidFinishEvents() {
	if r.s.cfg.Kind != transport.Background || r.s.onBackgroundEvents == nil {
		return
	}
	identifier := r.s.cfg.Identifier
	r.s.queue.Async(func() { r.s.onBackgroundEvents(identifier) })
}
