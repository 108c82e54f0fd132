package session

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/httplayer/internal/transport"
	"go.uber.org/zap"
)

// ErrManagerClosed is returned by a Manager after Close
var ErrManagerClosed = errors.New("session manager closed")

// Manager pools transport sessions by configuration
type Manager struct {
	factory transport.Factory
	files   FileManager
	metrics *monitoring.Metrics
	log     *zap.Logger

	mu         sync.Mutex
	sessions   []*Session
	background map[string]func()
	closed     bool
}

// NewManager creates a session manager. files, metrics and logger may be nil.
func NewManager(factory transport.Factory, files FileManager, metrics *monitoring.Metrics, logger *zap.Logger) *Manager {
	if files == nil {
		files = OSFileManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		factory:    factory,
		files:      files,
		metrics:    metrics,
		log:        logger,
		background: make(map[string]func()),
	}
}

// ActiveSession returns the valid session for cfg, creating it if needed.
// Lookup and creation are atomic, so concurrent callers share one session.
func (m *Manager) ActiveSession(cfg transport.Configuration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	for _, s := range m.sessions {
		if s.cfg.Equal(cfg) && s.Validity() == Valid {
			return s, nil
		}
	}

	s, err := newSession(cfg, sessionDeps{
		factory:            m.factory,
		files:              m.files,
		metrics:            m.metrics,
		log:                m.log,
		onBackgroundEvents: m.backgroundEventsFinished,
	})
	if err != nil {
		return nil, err
	}

	m.sessions = append(m.sessions, s)
	m.pruneLocked()

	m.metrics.RecordSessionCreated(cfg.Kind.String())
	m.log.Info("session created",
		zap.String("session", s.id.String()),
		zap.String("config", cfg.Key()),
	)
	return s, nil
}

// Sessions returns the pooled sessions
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// CancelAllRequests cancels every active transfer and returns once all their
// completion callbacks have run, or with ctx's error if ctx ends first.
// Called from a completion callback it cannot observe that session's other
// callbacks and only returns when ctx ends.
func (m *Manager) CancelAllRequests(ctx context.Context) error {
	sessions := m.Sessions()

	var wg sync.WaitGroup
	for _, s := range sessions {
		s.cancelAll(&wg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	m.pruneLocked()
	m.mu.Unlock()
	return nil
}

// InvalidateAndCancel invalidates every pooled session and cancels their
// transfers. Later requests get fresh sessions.
func (m *Manager) InvalidateAndCancel() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = nil
	m.mu.Unlock()

	for _, s := range sessions {
		s.invalidate()
	}
}

// HandleBackgroundEvents registers fn to run once the background session for
// identifier reports that its queued events have finished. The session is
// created if it does not exist yet.
//
// The transport reports finished events when its last task completes, so fn
// registered on an idle session stays pending until a transfer on that
// session finishes.
func (m *Manager) HandleBackgroundEvents(identifier string, fn func()) error {
	m.mu.Lock()
	m.background[identifier] = fn
	m.mu.Unlock()

	_, err := m.ActiveSession(transport.BackgroundConfig(identifier))
	if err != nil {
		m.mu.Lock()
		delete(m.background, identifier)
		m.mu.Unlock()
	}
	return err
}

func (m *Manager) backgroundEventsFinished(identifier string) {
	m.mu.Lock()
	fn := m.background[identifier]
	delete(m.background, identifier)
	m.mu.Unlock()

	if fn != nil {
		m.log.Debug("background events finished", zap.String("identifier", identifier))
		fn()
	}
}

// Close invalidates all sessions, refuses new ones and waits for the
// sessions to finish tearing down. It must not be called from a completion
// callback.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := append([]*Session(nil), m.sessions...)
	m.mu.Unlock()

	m.InvalidateAndCancel()
	for _, s := range sessions {
		<-s.queue.stopped
	}
}

func (m *Manager) pruneLocked() {
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.Validity() != Invalidated {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(m.sessions); i++ {
		m.sessions[i] = nil
	}
	m.sessions = kept
}
