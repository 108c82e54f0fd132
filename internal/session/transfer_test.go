package session

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer(t *testing.T, kind transport.TaskKind) (*Transfer, *stubTask) {
	t.Helper()
	task := &stubTask{id: "task-1", kind: kind, session: &stubSession{}}
	q := newSerialQueue("test")
	t.Cleanup(q.Close)
	return newTransfer(task, "", q), task
}

func TestTransferStatus(t *testing.T) {
	tr, task := newTestTransfer(t, transport.KindData)

	assert.Equal(t, StatusSuspended, tr.Status())
	assert.Equal(t, StateSuspended, tr.State())

	tr.Suspend()
	resumes, suspends, _ := task.counts()
	assert.Equal(t, 0, suspends, "suspend from suspended is ignored")

	tr.Resume()
	tr.Resume()
	resumes, _, _ = task.counts()
	assert.Equal(t, 1, resumes, "duplicate resume is ignored")
	assert.Equal(t, StatusRunning, tr.Status())

	tr.Suspend()
	_, suspends, _ = task.counts()
	assert.Equal(t, 1, suspends)
	assert.Equal(t, StatusSuspended, tr.Status())

	tr.Resume()
	assert.Equal(t, StateRunning, tr.State())

	tr.updateBody([]byte("x"))
	tr.performCompletion(nil)
	assert.Equal(t, StatusFinished, tr.Status())
	assert.Equal(t, StateFinished, tr.State())

	tr.Resume()
	tr.Suspend()
	assert.Equal(t, StatusFinished, tr.Status())
}

func TestPerformCompletionIsIdempotent(t *testing.T) {
	tr, _ := newTestTransfer(t, transport.KindData)

	var calls atomic.Int32
	tr.OnCompletion(func(*Response, error) { calls.Add(1) })
	tr.updateBody([]byte("ok"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				tr.performCompletion(nil)
			} else {
				tr.performCompletion(errNetwork)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	select {
	case <-tr.Done():
	default:
		t.Fatal("done channel must be closed")
	}
}

func TestLateUpdatesAreIgnored(t *testing.T) {
	tr, _ := newTestTransfer(t, transport.KindData)
	ch := collect(t, tr)

	assert.True(t, tr.updateHeaders(&transport.Response{StatusCode: http.StatusOK}))
	assert.True(t, tr.updateBody([]byte("first")))
	tr.performCompletion(nil)

	got := await(t, ch)
	require.NoError(t, got.err)

	assert.False(t, tr.updateHeaders(&transport.Response{StatusCode: http.StatusTeapot}))
	assert.False(t, tr.updateBody([]byte("late")))
	assert.False(t, tr.updateFile("/tmp/late"))

	assert.Equal(t, http.StatusOK, got.resp.StatusCode)
	assert.Equal(t, "first", got.resp.Text())
	assert.Empty(t, got.resp.FileLocation)
}

func TestCompletionWithoutResponse(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(tr *Transfer)
		err     error
		want    error
	}{
		{"nothing received", func(*Transfer) {}, nil, ErrNoResponse},
		{"transport error wins", func(*Transfer) {}, errNetwork, errNetwork},
		{"empty body is a response", func(tr *Transfer) {
			tr.updateHeaders(&transport.Response{StatusCode: http.StatusNoContent})
		}, nil, nil},
		{"recorded file error", func(tr *Transfer) {
			tr.updateHeaders(&transport.Response{StatusCode: http.StatusOK})
			tr.recordError(ErrFileRelocation)
		}, nil, ErrFileRelocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTransfer(t, transport.KindData)
			ch := collect(t, tr)
			tt.prepare(tr)
			tr.performCompletion(tt.err)

			got := await(t, ch)
			if tt.want == nil {
				assert.NoError(t, got.err)
				assert.NotNil(t, got.resp)
			} else {
				assert.ErrorIs(t, got.err, tt.want)
			}
		})
	}
}

func TestCallbacksRunInOrder(t *testing.T) {
	tr, _ := newTestTransfer(t, transport.KindData)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		tr.OnCompletion(func(*Response, error) { order = append(order, i) })
	}
	tr.updateBody(nil)
	tr.performCompletion(nil)

	assert.Equal(t, []int{0, 1, 2}, order)
	assert.False(t, tr.OnCompletion(func(*Response, error) {}), "registration after finish is refused")
	assert.False(t, tr.OnProgress(func(Progress) {}))
}

func TestPerformProgress(t *testing.T) {
	tr, _ := newTestTransfer(t, transport.KindDownload)

	var got []Progress
	tr.OnProgress(func(p Progress) { got = append(got, p) })
	tr.performProgress(25, 100)
	tr.performProgress(100, -1)

	require.Len(t, got, 2)
	assert.Equal(t, Progress{Completed: 25, Total: 100, Fraction: 0.25}, got[0])
	assert.Equal(t, 0.0, got[1].Fraction)
	assert.Equal(t, StatusSuspended, tr.Status(), "progress never changes status")

	tr.updateBody(nil)
	tr.performCompletion(nil)
	tr.performProgress(100, 100)
	assert.Len(t, got, 2)
}

func TestNewProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		want      float64
	}{
		{"half", 50, 100, 0.5},
		{"unknown total", 10, -1, 0},
		{"zero total", 10, 0, 0},
		{"overshoot is clamped", 150, 100, 1},
		{"done", 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewProgress(tt.completed, tt.total).Fraction)
		})
	}
}

func TestTransferCancel(t *testing.T) {
	t.Run("completes with cancellation then calls back", func(t *testing.T) {
		tr, task := newTestTransfer(t, transport.KindData)

		var seq []string
		var mu sync.Mutex
		tr.OnCompletion(func(_ *Response, err error) {
			assert.ErrorIs(t, err, ErrCancelled)
			mu.Lock()
			seq = append(seq, "completion")
			mu.Unlock()
		})

		cancelled := make(chan struct{})
		tr.Cancel(func() {
			mu.Lock()
			seq = append(seq, "cancelled")
			mu.Unlock()
			close(cancelled)
		})

		select {
		case <-cancelled:
		case <-time.After(waitTimeout):
			t.Fatal("onCancelled not invoked")
		}
		_, _, cancels := task.counts()
		assert.Equal(t, 1, cancels)
		mu.Lock()
		assert.Equal(t, []string{"completion", "cancelled"}, seq)
		mu.Unlock()
	})

	t.Run("after finish only reports back", func(t *testing.T) {
		tr, task := newTestTransfer(t, transport.KindData)
		tr.updateBody(nil)
		tr.performCompletion(nil)

		cancelled := make(chan struct{})
		tr.Cancel(func() { close(cancelled) })

		select {
		case <-cancelled:
		case <-time.After(waitTimeout):
			t.Fatal("onCancelled not invoked")
		}
		_, _, cancels := task.counts()
		assert.Equal(t, 0, cancels)
	})

	t.Run("races network completion", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			tr, _ := newTestTransfer(t, transport.KindData)
			var calls atomic.Int32
			var last atomic.Value
			tr.OnCompletion(func(_ *Response, err error) {
				calls.Add(1)
				last.Store(err)
			})

			go tr.queue.Async(func() { tr.performCompletion(errNetwork) })
			tr.Cancel(nil)

			select {
			case <-tr.Done():
			case <-time.After(waitTimeout):
				t.Fatal("transfer did not finish")
			}
			assert.Equal(t, int32(1), calls.Load())
			err, _ := last.Load().(error)
			assert.True(t, errors.Is(err, ErrCancelled) || errors.Is(err, errNetwork), "unexpected error %v", err)
		}
	})
}

func TestResponseText(t *testing.T) {
	var nilResp *Response
	assert.Equal(t, "", nilResp.Text())
	assert.Equal(t, "body", (&Response{Body: []byte("body")}).Text())
}
