package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/transport"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

var taskSeq atomic.Int64

type stubTask struct {
	id      transport.TaskID
	kind    transport.TaskKind
	session *stubSession

	mu        sync.Mutex
	state     transport.TaskState
	resumes   int
	suspends  int
	cancels   int
	scriptRan bool
}

func (t *stubTask) ID() transport.TaskID     { return t.id }
func (t *stubTask) Kind() transport.TaskKind { return t.kind }

func (t *stubTask) State() transport.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *stubTask) Resume() {
	t.mu.Lock()
	t.resumes++
	t.state = transport.TaskRunning
	run := !t.scriptRan && t.session.script != nil
	t.scriptRan = true
	t.mu.Unlock()

	switch {
	case run && t.session.inline:
		t.session.script(t.session.delegate, t)
	case run:
		go t.session.script(t.session.delegate, t)
	}
}

func (t *stubTask) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspends++
	t.state = transport.TaskSuspended
}

func (t *stubTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancels++
	t.state = transport.TaskCanceling
}

func (t *stubTask) counts() (resumes, suspends, cancels int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resumes, t.suspends, t.cancels
}

// stubSession never touches the network; script plays transport events for
// a task once it is resumed. A nil script never calls back. With inline set
// the script runs on the goroutine calling Resume.
type stubSession struct {
	cfg       transport.Configuration
	delegate  transport.Delegate
	script    func(d transport.Delegate, t *stubTask)
	inline    bool
	createErr error

	mu          sync.Mutex
	tasks       []*stubTask
	invalidated bool
}

func (s *stubSession) Configuration() transport.Configuration { return s.cfg }

func (s *stubSession) newTask(kind transport.TaskKind) (transport.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated {
		return nil, transport.ErrInvalidated
	}
	if s.createErr != nil {
		return nil, s.createErr
	}
	t := &stubTask{
		id:      transport.TaskID(fmt.Sprintf("stub-%d", taskSeq.Add(1))),
		kind:    kind,
		session: s,
	}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *stubSession) DataTask(*transport.Request) (transport.Task, error) {
	return s.newTask(transport.KindData)
}

func (s *stubSession) UploadTask(*transport.Request, string) (transport.Task, error) {
	return s.newTask(transport.KindUpload)
}

func (s *stubSession) DownloadTask(*transport.Request) (transport.Task, error) {
	return s.newTask(transport.KindDownload)
}

func (s *stubSession) FinishTasksAndInvalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

func (s *stubSession) InvalidateAndCancel() {
	s.mu.Lock()
	s.invalidated = true
	tasks := append([]*stubTask(nil), s.tasks...)
	s.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}

func (s *stubSession) isInvalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// stubTransport is a transport.Factory that records the sessions it builds
type stubTransport struct {
	script     func(d transport.Delegate, t *stubTask)
	inline     bool
	createErr  error
	factoryErr error

	mu       sync.Mutex
	sessions []*stubSession
	builds   atomic.Int64
}

func (st *stubTransport) factory(cfg transport.Configuration, d transport.Delegate) (transport.Session, error) {
	st.builds.Add(1)
	if st.factoryErr != nil {
		return nil, st.factoryErr
	}
	s := &stubSession{cfg: cfg, delegate: d, script: st.script, inline: st.inline, createErr: st.createErr}
	st.mu.Lock()
	st.sessions = append(st.sessions, s)
	st.mu.Unlock()
	return s, nil
}

func (st *stubTransport) last() *stubSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.sessions) == 0 {
		return nil
	}
	return st.sessions[len(st.sessions)-1]
}

// respond plays a complete data exchange
func respond(status int, body string) func(transport.Delegate, *stubTask) {
	return func(d transport.Delegate, t *stubTask) {
		u, _ := url.Parse("https://example.test/get")
		d.DidReceiveResponse(t, &transport.Response{
			URL:                   u,
			StatusCode:            status,
			Header:                http.Header{"Content-Type": {"application/json"}},
			ExpectedContentLength: int64(len(body)),
			MIMEType:              "application/json",
			TextEncoding:          "utf-8",
		})
		d.DidReceiveData(t, []byte(body))
		d.DidComplete(t, nil)
	}
}

type mockFileManager struct {
	mock.Mock
}

func (m *mockFileManager) Relocate(src, dst string) error {
	args := m.Called(src, dst)
	return args.Error(0)
}

type outcome struct {
	resp *Response
	err  error
}

// collect registers a completion callback that reports on the returned channel
func collect(t *testing.T, tr *Transfer) <-chan outcome {
	t.Helper()
	ch := make(chan outcome, 4)
	require.True(t, tr.OnCompletion(func(resp *Response, err error) {
		ch <- outcome{resp, err}
	}))
	return ch
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(waitTimeout):
		t.Fatal("completion was not delivered")
		return outcome{}
	}
}

func testRequest(t *testing.T) *transport.Request {
	t.Helper()
	u, err := url.Parse("https://example.test/get")
	require.NoError(t, err)
	return &transport.Request{Method: http.MethodGet, URL: u, Header: http.Header{"User-Agent": {"X"}}}
}

var errNetwork = errors.New("network down")
