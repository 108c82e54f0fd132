package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// contentLengthHint carries a known body length from the task to the
// pre-request hook, which moves it onto http.Request.ContentLength.
const contentLengthHint = "X-Httplayer-Content-Length"

// NewHTTPFactory returns a Factory producing net/http backed sessions.
// defaults apply to every configuration; Configuration.Options override them.
func NewHTTPFactory(defaults Options, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(cfg Configuration, delegate Delegate) (Session, error) {
		if delegate == nil {
			return nil, errors.New("transport: nil delegate")
		}
		opts := defaults.merge(Options{})
		if cfg.Options != nil {
			opts = cfg.Options.merge(defaults)
		}
		return newHTTPSession(cfg, opts, delegate, logger.With(zap.String("config", cfg.Key()))), nil
	}
}

type httpSession struct {
	cfg      Configuration
	opts     Options
	delegate Delegate
	client   *resty.Client
	limiter  *rate.Limiter
	breakers *resilience.Group
	log      *zap.Logger

	mu           sync.Mutex
	tasks        map[TaskID]*httpTask
	invalidating bool
	invalidOnce  sync.Once
}

func newHTTPSession(cfg Configuration, opts Options, delegate Delegate, logger *zap.Logger) *httpSession {
	s := &httpSession{
		cfg:      cfg,
		opts:     opts,
		delegate: delegate,
		log:      logger,
		tasks:    make(map[TaskID]*httpTask),
	}

	s.client = resty.New().
		SetTransport(pooledTransport(opts, logger)).
		SetTimeout(opts.ResourceTimeout).
		SetLogger(logger.Sugar()).
		SetAllowGetMethodPayload(true).
		SetPreRequestHook(applyContentLength)
	if opts.UserAgent != "" {
		s.client.SetHeader("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Header {
		s.client.Header[k] = append([]string(nil), v...)
	}
	if cfg.Kind == Ephemeral || opts.DisableCookies {
		s.client.SetCookieJar(nil)
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if opts.Breaker != nil {
		settings := *opts.Breaker
		settings.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, ErrCancelled) && !errors.Is(err, context.Canceled)
		}
		s.breakers = resilience.NewGroup(cfg.Key(), settings)
	}

	return s
}

// pooledTransport reuses retryablehttp's pooled cleanhttp transport. Retries
// are never enabled: the retryable client is only a transport source.
func pooledTransport(opts Options, logger *zap.Logger) *http.Transport {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil

	base, ok := rc.HTTPClient.Transport.(*http.Transport)
	if !ok {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	base.DisableCompression = true
	base.ResponseHeaderTimeout = opts.RequestTimeout
	if opts.MaxConnsPerHost > 0 {
		base.MaxConnsPerHost = opts.MaxConnsPerHost
	}
	if opts.HTTP2 {
		if err := http2.ConfigureTransport(base); err != nil {
			logger.Warn("http2 not configured", zap.Error(err))
		}
	}
	return base
}

func applyContentLength(_ *resty.Client, req *http.Request) error {
	hint := req.Header.Get(contentLengthHint)
	if hint == "" {
		return nil
	}
	req.Header.Del(contentLengthHint)
	n, err := strconv.ParseInt(hint, 10, 64)
	if err != nil {
		return nil
	}
	req.ContentLength = n
	if n == 0 {
		req.Body = http.NoBody
	}
	return nil
}

func (s *httpSession) Configuration() Configuration { return s.cfg }

func (s *httpSession) DataTask(req *Request) (Task, error) {
	return s.newTask(KindData, req, "")
}

func (s *httpSession) UploadTask(req *Request, file string) (Task, error) {
	if file == "" {
		return nil, fmt.Errorf("%w: upload without file", ErrInvalidRequest)
	}
	return s.newTask(KindUpload, req, file)
}

func (s *httpSession) DownloadTask(req *Request) (Task, error) {
	return s.newTask(KindDownload, req, "")
}

func (s *httpSession) newTask(kind TaskKind, req *Request, file string) (Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidating {
		return nil, ErrInvalidated
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &httpTask{
		id:      TaskID(uuid.NewString()),
		kind:    kind,
		session: s,
		req:     req,
		file:    file,
		ctx:     ctx,
		cancel:  cancel,
		resumed: make(chan struct{}),
	}
	s.tasks[t.id] = t
	return t, nil
}

func (s *httpSession) FinishTasksAndInvalidate() {
	s.mu.Lock()
	s.invalidating = true
	remaining := len(s.tasks)
	s.mu.Unlock()

	if remaining == 0 {
		s.reportInvalid()
	}
}

func (s *httpSession) InvalidateAndCancel() {
	s.mu.Lock()
	s.invalidating = true
	tasks := make([]*httpTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	if len(tasks) == 0 {
		s.reportInvalid()
		return
	}
	for _, t := range tasks {
		t.Cancel()
	}
}

func (s *httpSession) reportInvalid() {
	s.invalidOnce.Do(func() {
		s.client.GetClient().CloseIdleConnections()
		s.log.Debug("transport session invalidated")
		s.delegate.DidBecomeInvalid(nil)
	})
}

// taskDone runs after DidComplete has been delivered for t
func (s *httpSession) taskDone(t *httpTask) {
	s.mu.Lock()
	delete(s.tasks, t.id)
	remaining := len(s.tasks)
	invalidating := s.invalidating
	s.mu.Unlock()

	if remaining > 0 {
		return
	}
	if s.cfg.Kind == Background {
		s.delegate.DidFinishEvents()
	}
	if invalidating {
		s.reportInvalid()
	}
}

// guard runs fn behind the host's circuit breaker, if configured
func (s *httpSession) guard(host string, fn func() error) error {
	if s.breakers == nil {
		return fn()
	}
	return s.breakers.Get(host).Execute(fn)
}
