package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/httplayer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/files"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/utils"
	"github.com/GriffinCanCode/httplayer/internal/session"
	"github.com/GriffinCanCode/httplayer/internal/transport"
	"go.uber.org/zap"
)

// Response is the outcome delivered for a transfer
type Response = session.Response

// Progress reports bytes moved for an upload or download
type Progress = session.Progress

type ProgressFunc = session.ProgressFunc

// Config wires a Client. Zero values fall back to defaults.
type Config struct {
	// Transport holds defaults for every session's transport
	Transport transport.Options
	// Header is sent with every request; request headers take precedence
	Header http.Header
	// Factory overrides the net/http transport
	Factory transport.Factory
	Files   session.FileManager
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
	Logger  *zap.Logger
}

// Client is the typed entry point for data, upload and download transfers
type Client struct {
	manager *session.Manager
	tracer  *tracing.Tracer
	log     *zap.Logger

	mu     sync.RWMutex
	header http.Header
}

// Request describes one transfer
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Configuration selects the pooled session; the zero value is foreground
	Configuration transport.Configuration

	OnProgress ProgressFunc
	// OnComplete runs once with the final response and error, on the
	// session's serial queue. It must not call CancelAll or Close.
	OnComplete session.CompletionFunc
}

// DefaultOptions returns production transport defaults
func DefaultOptions() transport.Options {
	return transport.Options{
		UserAgent:       "httplayer/1.0",
		RequestTimeout:  30 * time.Second,
		ResourceTimeout: 10 * time.Minute,
		HTTP2:           true,
	}
}

// New creates a client from cfg
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = transport.NewHTTPFactory(cfg.Transport, logger.Named("transport"))
	}

	header := http.Header{}
	for k, v := range cfg.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}

	return &Client{
		manager: session.NewManager(factory, cfg.Files, cfg.Metrics, logger.Named("session")),
		tracer:  cfg.Tracer,
		log:     logger,
		header:  header,
	}
}

// NewClient creates a client with DefaultOptions and no logging
func NewClient() *Client {
	return New(Config{Transport: DefaultOptions()})
}

// Manager exposes the session pool
func (c *Client) Manager() *session.Manager { return c.manager }

// SetHeader adds a default header
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.Set(key, value)
}

// RemoveHeader removes a default header
func (c *Client) RemoveHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.Del(key)
}

// Headers returns a copy of the default headers
func (c *Client) Headers() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.header.Clone()
}

// Send starts a transfer whose response body is collected in memory
func (c *Client) Send(ctx context.Context, req Request) (*Handle, error) {
	return c.start(ctx, req, transport.KindData, "", "")
}

// SendUpload starts a transfer that streams file as the request body
func (c *Client) SendUpload(ctx context.Context, req Request, file string) (*Handle, error) {
	up, err := files.PrepareUpload(file)
	if err != nil {
		return nil, err
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header = req.Header.Clone()
		req.Header.Set("Content-Type", up.ContentType)
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	return c.start(ctx, req, transport.KindUpload, up.Path, "")
}

// SendDownload starts a transfer whose response body is written to
// destination, replacing any existing file.
func (c *Client) SendDownload(ctx context.Context, req Request, destination string) (*Handle, error) {
	dest, err := files.PrepareDestination(destination)
	if err != nil {
		return nil, err
	}
	return c.start(ctx, req, transport.KindDownload, "", dest)
}

// CancelAll cancels every transfer and waits for their completions
func (c *Client) CancelAll(ctx context.Context) error {
	return c.manager.CancelAllRequests(ctx)
}

// HandleBackgroundEvents runs fn once the background session named
// identifier has finished its queued work. fn fires after the session's next
// transfer finishes; with no transfer it stays pending.
func (c *Client) HandleBackgroundEvents(identifier string, fn func()) error {
	return c.manager.HandleBackgroundEvents(identifier, fn)
}

// Close cancels all transfers and releases every session
func (c *Client) Close() {
	c.manager.Close()
}

func (c *Client) start(ctx context.Context, req Request, kind transport.TaskKind, file, destination string) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	u, err := utils.ParseURL(req.URL)
	if err != nil {
		return nil, err
	}

	header := c.mergeHeaders(req.Header)
	span, _ := c.tracer.StartSpan(ctx, method+" "+u.Host)
	span.Inject(header)
	span.SetTag("kind", kind.String())
	span.SetTag("config", req.Configuration.Key())
	span.SetTag("url", u.Redacted())

	s, err := c.manager.ActiveSession(req.Configuration)
	if err != nil {
		return nil, err
	}

	h := newHandle()
	opts := []session.TransferOption{
		session.WithProgress(req.OnProgress),
		session.WithCompletion(func(resp *Response, err error) {
			if resp != nil {
				span.SetStatus(resp.StatusCode)
			}
			if err != nil {
				span.SetError(err)
			}
			span.Finish()
			c.tracer.Submit(span)
		}),
		session.WithCompletion(h.complete),
		session.WithCompletion(req.OnComplete),
	}

	treq := &transport.Request{Method: method, URL: u, Header: header, Body: req.Body}
	var tr *session.Transfer
	switch kind {
	case transport.KindUpload:
		tr, err = s.Upload(treq, file, opts...)
	case transport.KindDownload:
		tr, err = s.Download(treq, destination, opts...)
	default:
		tr, err = s.Data(treq, opts...)
	}
	if err != nil {
		c.log.Debug("transfer not created", zap.String("url", u.Redacted()), zap.Error(err))
		return nil, err
	}
	h.transfer = tr

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				tr.Cancel(nil)
			case <-tr.Done():
			}
		}()
	}

	tr.Resume()
	return h, nil
}

func (c *Client) mergeHeaders(h http.Header) http.Header {
	out := c.Headers()
	for k, vs := range h {
		out.Del(k)
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}
