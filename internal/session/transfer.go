package session

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/transport"
)

// Status is the internal lifecycle of a transfer.
// Suspended and Running toggle; Finishing and Finished are entered once.
type Status int

const (
	StatusSuspended Status = iota
	StatusRunning
	StatusFinishing
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusFinishing:
		return "finishing"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// State is the caller-facing projection of Status
type State int

const (
	StateSuspended State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CompletionFunc receives the final response (possibly nil) and error.
//
// Completion callbacks run on the owning session's serial queue. They must not
// block on other transfers of that session: Manager.CancelAllRequests called
// from a callback only returns when its context ends, and Manager.Close
// called from a callback never returns.
type CompletionFunc func(resp *Response, err error)

// ProgressFunc receives upload or download progress. It runs on the same
// queue as CompletionFunc.
type ProgressFunc func(p Progress)

// TransferOption configures a transfer before its session can see it
type TransferOption func(*Transfer)

// WithCompletion attaches fn before the transfer is registered, so it runs
// even if the session cancels or invalidates the transfer immediately.
func WithCompletion(fn CompletionFunc) TransferOption {
	return func(t *Transfer) {
		if fn != nil {
			t.completion = append(t.completion, fn)
		}
	}
}

// WithProgress attaches fn before the transfer is registered
func WithProgress(fn ProgressFunc) TransferOption {
	return func(t *Transfer) {
		if fn != nil {
			t.progress = append(t.progress, fn)
		}
	}
}

// Transfer tracks one transport task from creation to completion.
type Transfer struct {
	id          transport.TaskID
	kind        transport.TaskKind
	task        transport.Task
	destination string
	created     time.Time
	queue       *serialQueue

	mu         sync.Mutex
	status     Status
	acc        accumulator
	fileErr    error
	progress   []ProgressFunc
	completion []CompletionFunc
	onFinished func(t *Transfer, err error)
	done       chan struct{}
}

func newTransfer(task transport.Task, destination string, queue *serialQueue) *Transfer {
	return &Transfer{
		id:          task.ID(),
		kind:        task.Kind(),
		task:        task,
		destination: destination,
		created:     time.Now(),
		queue:       queue,
		done:        make(chan struct{}),
	}
}

// ID is the identity of the underlying transport task
func (t *Transfer) ID() transport.TaskID { return t.id }

func (t *Transfer) Kind() transport.TaskKind { return t.kind }

// Destination is where a download is moved on success; empty otherwise.
func (t *Transfer) Destination() string { return t.destination }

// Status returns the internal four-state lifecycle
func (t *Transfer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// State projects Status for callers: Finishing still reads as Running
// because completion has not been delivered yet.
func (t *Transfer) State() State {
	switch t.Status() {
	case StatusSuspended:
		return StateSuspended
	case StatusFinished:
		return StateFinished
	default:
		return StateRunning
	}
}

// Done is closed once completion callbacks have run
func (t *Transfer) Done() <-chan struct{} { return t.done }

// Resume starts or continues a suspended transfer. The transport is called
// without t.mu held since it may deliver events on this goroutine.
func (t *Transfer) Resume() {
	t.mu.Lock()
	if t.status != StatusSuspended {
		t.mu.Unlock()
		return
	}
	t.status = StatusRunning
	t.mu.Unlock()

	t.task.Resume()
}

// Suspend pauses a running transfer
func (t *Transfer) Suspend() {
	t.mu.Lock()
	if t.status != StatusRunning {
		t.mu.Unlock()
		return
	}
	t.status = StatusSuspended
	t.mu.Unlock()

	t.task.Suspend()
}

// Cancel aborts the transfer and completes it with ErrCancelled unless the
// network completion got there first. onCancelled, if given, runs after the
// completion callbacks.
func (t *Transfer) Cancel(onCancelled func()) {
	t.mu.Lock()
	finishing := t.status >= StatusFinishing
	t.mu.Unlock()

	if !finishing {
		t.task.Cancel()
		t.queue.Async(func() { t.performCompletion(ErrCancelled) })
	}
	if onCancelled != nil {
		go func() {
			<-t.done
			onCancelled()
		}()
	}
}

// OnCompletion registers fn. It reports false once the transfer is finishing.
func (t *Transfer) OnCompletion(fn CompletionFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return false
	}
	t.completion = append(t.completion, fn)
	return true
}

// OnProgress registers fn. It reports false once the transfer is finishing.
func (t *Transfer) OnProgress(fn ProgressFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return false
	}
	t.progress = append(t.progress, fn)
	return true
}

func (t *Transfer) updateHeaders(meta *transport.Response) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return false
	}
	t.acc.headers(meta)
	return true
}

func (t *Transfer) updateBody(chunk []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return false
	}
	t.acc.body(chunk)
	return true
}

func (t *Transfer) updateFile(location string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return false
	}
	t.acc.file(location)
	return true
}

// recordError keeps err to be reported if the transport completes cleanly
func (t *Transfer) recordError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status >= StatusFinishing {
		return
	}
	t.fileErr = err
}

func (t *Transfer) performProgress(completed, total int64) {
	t.mu.Lock()
	if t.status >= StatusFinishing || len(t.progress) == 0 {
		t.mu.Unlock()
		return
	}
	fns := append([]ProgressFunc(nil), t.progress...)
	t.mu.Unlock()

	p := NewProgress(completed, total)
	for _, fn := range fns {
		fn(p)
	}
}

// performCompletion delivers the outcome exactly once; later calls are no-ops.
func (t *Transfer) performCompletion(err error) {
	t.mu.Lock()
	if t.status >= StatusFinishing {
		t.mu.Unlock()
		return
	}
	t.status = StatusFinishing
	resp := t.acc.response()
	if err == nil {
		err = t.fileErr
	}
	if err == nil && resp == nil {
		err = ErrNoResponse
	}
	fns := t.completion
	t.completion = nil
	t.progress = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn(resp, err)
	}

	t.mu.Lock()
	t.status = StatusFinished
	onFinished := t.onFinished
	t.onFinished = nil
	t.mu.Unlock()

	if onFinished != nil {
		onFinished(t, err)
	}
	close(t.done)
}
