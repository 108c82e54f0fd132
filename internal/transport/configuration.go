package transport

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/resilience"
)

// ConfigKind names a transport behaviour profile
type ConfigKind int

const (
	Foreground ConfigKind = iota
	Ephemeral
	Background
	Custom
)

func (k ConfigKind) String() string {
	switch k {
	case Foreground:
		return "foreground"
	case Ephemeral:
		return "ephemeral"
	case Background:
		return "background"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Configuration selects the session a request runs on. Two configurations
// with the same Key share one pooled session.
type Configuration struct {
	Kind       ConfigKind
	Identifier string
	// Options overrides factory defaults field by field. Nil uses the defaults.
	Options *Options
}

// ForegroundConfig is the default shared configuration with a cookie jar
func ForegroundConfig() Configuration {
	return Configuration{Kind: Foreground}
}

// EphemeralConfig keeps no cookies between requests
func EphemeralConfig() Configuration {
	return Configuration{Kind: Ephemeral}
}

// BackgroundConfig is identified by name so the host can route
// "background events finished" signals back to it.
func BackgroundConfig(identifier string) Configuration {
	return Configuration{Kind: Background, Identifier: identifier}
}

// CustomConfig binds transport options to a name
func CustomConfig(name string, opts Options) Configuration {
	return Configuration{Kind: Custom, Identifier: name, Options: &opts}
}

// Key is the pooling identity of the configuration
func (c Configuration) Key() string {
	switch c.Kind {
	case Background, Custom:
		return c.Kind.String() + ":" + c.Identifier
	default:
		return c.Kind.String()
	}
}

// Equal reports whether c and o select the same session
func (c Configuration) Equal(o Configuration) bool {
	return c.Key() == o.Key()
}

func (c Configuration) String() string { return c.Key() }

// Options tune the net/http transport
type Options struct {
	UserAgent string
	Header    http.Header

	// RequestTimeout bounds the wait for response headers.
	RequestTimeout time.Duration
	// ResourceTimeout bounds the whole transfer including the body.
	ResourceTimeout time.Duration

	MaxConnsPerHost int
	HTTP2           bool
	DisableCookies  bool

	// RateLimit is requests per second per session; zero means unlimited.
	RateLimit float64
	RateBurst int

	// Breaker enables a per-host circuit breaker when non-nil.
	Breaker *resilience.Settings

	TempDir   string
	ChunkSize int
}

const defaultChunkSize = 32 * 1024

// merge fills zero fields of o from d
func (o Options) merge(d Options) Options {
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if d.Header != nil {
		h := d.Header.Clone()
		for k, v := range o.Header {
			h[k] = append([]string(nil), v...)
		}
		o.Header = h
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.ResourceTimeout == 0 {
		o.ResourceTimeout = d.ResourceTimeout
	}
	if o.MaxConnsPerHost == 0 {
		o.MaxConnsPerHost = d.MaxConnsPerHost
	}
	o.HTTP2 = o.HTTP2 || d.HTTP2
	o.DisableCookies = o.DisableCookies || d.DisableCookies
	if o.RateLimit == 0 {
		o.RateLimit = d.RateLimit
		o.RateBurst = d.RateBurst
	}
	if o.Breaker == nil {
		o.Breaker = d.Breaker
	}
	if o.TempDir == "" {
		o.TempDir = d.TempDir
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	return o
}
