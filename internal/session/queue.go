package session

import "sync"

// serialQueue runs submitted functions one at a time, in submission order, on
// a single worker goroutine. Submission never blocks, so work may enqueue more
// work from inside the queue.
type serialQueue struct {
	label string

	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func newSerialQueue(label string) *serialQueue {
	q := &serialQueue{
		label:   label,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.loop()
	return q
}

// Async schedules fn. After Close, fn runs on its own goroutine.
func (q *serialQueue) Async(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		go fn()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Sync schedules fn and waits for it to run. It must not be called from
// inside the queue.
func (q *serialQueue) Sync(fn func()) {
	done := make(chan struct{})
	q.Async(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Close stops the worker once already queued work has drained.
func (q *serialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *serialQueue) loop() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}
