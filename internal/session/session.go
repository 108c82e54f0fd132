package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/httplayer/internal/shared/id"
	"github.com/GriffinCanCode/httplayer/internal/transport"
	"go.uber.org/zap"
)

// Validity of a session for new work
type Validity int

const (
	Valid Validity = iota
	// Invalid sessions are tearing down their transfers
	Invalid
	// Invalidated sessions are finished and get pruned from the pool
	Invalidated
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Invalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Session wraps one transport session and the transfers running on it.
// Every transport event for this session is applied on its serial queue.
type Session struct {
	id        id.SessionID
	cfg       transport.Configuration
	transport transport.Session
	queue     *serialQueue
	files     FileManager
	metrics   *monitoring.Metrics
	log       *zap.Logger

	// onBackgroundEvents is told when a background configuration has drained
	onBackgroundEvents func(identifier string)

	mu        sync.Mutex
	validity  Validity
	transfers map[transport.TaskID]*Transfer
}

type sessionDeps struct {
	factory            transport.Factory
	files              FileManager
	metrics            *monitoring.Metrics
	log                *zap.Logger
	onBackgroundEvents func(identifier string)
}

func newSession(cfg transport.Configuration, deps sessionDeps) (*Session, error) {
	sid := id.NewSessionID()
	s := &Session{
		id:                 sid,
		cfg:                cfg,
		queue:              newSerialQueue(string(sid)),
		files:              deps.files,
		metrics:            deps.metrics,
		log:                deps.log.With(zap.String("session", sid.String()), zap.String("config", cfg.Key())),
		onBackgroundEvents: deps.onBackgroundEvents,
		transfers:          make(map[transport.TaskID]*Transfer),
	}

	ts, err := deps.factory(cfg, &router{s: s})
	if err != nil {
		s.queue.Close()
		return nil, fmt.Errorf("create transport session: %w", err)
	}
	s.transport = ts
	return s, nil
}

func (s *Session) ID() id.SessionID { return s.id }

func (s *Session) Configuration() transport.Configuration { return s.cfg }

func (s *Session) Validity() Validity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validity
}

// Transfer looks up an active transfer by transport task identity
func (s *Session) Transfer(taskID transport.TaskID) (*Transfer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[taskID]
	return t, ok
}

// Transfers returns a snapshot of the active transfers
func (s *Session) Transfers() []*Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	return out
}

// Data creates a suspended transfer that collects the response body in memory
func (s *Session) Data(req *transport.Request, opts ...TransferOption) (*Transfer, error) {
	return s.createTransfer(transport.KindData, req, "", "", opts)
}

// Upload creates a suspended transfer that streams file as the request body
func (s *Session) Upload(req *transport.Request, file string, opts ...TransferOption) (*Transfer, error) {
	return s.createTransfer(transport.KindUpload, req, file, "", opts)
}

// Download creates a suspended transfer whose body is saved to destination
func (s *Session) Download(req *transport.Request, destination string, opts ...TransferOption) (*Transfer, error) {
	return s.createTransfer(transport.KindDownload, req, "", destination, opts)
}

func (s *Session) createTransfer(kind transport.TaskKind, req *transport.Request, file, destination string, opts []TransferOption) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validity != Valid {
		return nil, ErrSessionInvalidated
	}

	var (
		task transport.Task
		err  error
	)
	switch kind {
	case transport.KindUpload:
		task, err = s.transport.UploadTask(req, file)
	case transport.KindDownload:
		task, err = s.transport.DownloadTask(req)
	default:
		task, err = s.transport.DataTask(req)
	}
	if errors.Is(err, transport.ErrInvalidated) {
		return nil, ErrSessionInvalidated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskCreationFailed, err)
	}
	if task == nil {
		return nil, ErrTaskCreationFailed
	}

	t := newTransfer(task, destination, s.queue)
	for _, opt := range opts {
		opt(t)
	}
	t.onFinished = s.transferFinished
	s.transfers[t.id] = t

	s.metrics.RecordTransferStarted(kind.String(), s.cfg.Kind.String())
	s.log.Debug("transfer created",
		zap.String("task", string(t.id)),
		zap.String("kind", kind.String()),
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)
	return t, nil
}

func (s *Session) transferFinished(t *Transfer, err error) {
	s.mu.Lock()
	delete(s.transfers, t.id)
	s.mu.Unlock()

	outcome := monitoring.OutcomeSuccess
	switch {
	case errors.Is(err, ErrCancelled):
		outcome = monitoring.OutcomeCancelled
	case err != nil:
		outcome = monitoring.OutcomeFailure
	}
	s.metrics.RecordTransferCompleted(t.kind.String(), outcome, time.Since(t.created))
	s.log.Debug("transfer finished",
		zap.String("task", string(t.id)),
		zap.String("outcome", outcome),
		zap.Error(err),
	)
}

// cancelAll cancels every active transfer; wg is released as each one's
// completion callbacks finish.
func (s *Session) cancelAll(wg *sync.WaitGroup) {
	for _, t := range s.Transfers() {
		wg.Add(1)
		t.Cancel(wg.Done)
	}
}

// invalidate stops the session taking work and tears down the transport
func (s *Session) invalidate() {
	s.mu.Lock()
	if s.validity != Valid {
		s.mu.Unlock()
		return
	}
	s.validity = Invalid
	s.mu.Unlock()

	s.log.Info("invalidating session")
	s.transport.InvalidateAndCancel()
	s.queue.Async(func() { s.teardown(ErrSessionInvalidated) })
}

// teardown force-completes every active transfer with err and retires the
// session. It runs on the session queue.
func (s *Session) teardown(err error) {
	if err == nil {
		err = ErrSessionInvalidated
	}

	s.mu.Lock()
	if s.validity == Invalidated {
		s.mu.Unlock()
		return
	}
	s.validity = Invalid
	active := make([]*Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		active = append(active, t)
	}
	s.mu.Unlock()

	for _, t := range active {
		t.task.Cancel()
		t.performCompletion(err)
	}

	s.mu.Lock()
	s.validity = Invalidated
	s.transfers = make(map[transport.TaskID]*Transfer)
	s.mu.Unlock()

	s.metrics.RecordSessionInvalidated()
	s.log.Info("session invalidated", zap.Int("completed", len(active)), zap.Error(err))
	s.queue.Close()
}
