package session

import (
	"net/http"
	"net/url"

	"github.com/GriffinCanCode/httplayer/internal/transport"
)

// Response is the finalized outcome of a transfer
type Response struct {
	URL                   *url.URL
	StatusCode            int
	Header                http.Header
	ExpectedContentLength int64
	MIMEType              string
	TextEncoding          string
	Body                  []byte
	// FileLocation is the destination of a completed download
	FileLocation string
}

// Text returns the body as a string
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// accumulator assembles a Response from transport events. The first event of
// any kind creates the response; later events update it in place.
type accumulator struct {
	resp *Response
}

func (a *accumulator) ensure() *Response {
	if a.resp == nil {
		a.resp = &Response{ExpectedContentLength: -1}
	}
	return a.resp
}

func (a *accumulator) headers(meta *transport.Response) {
	if meta == nil {
		return
	}
	r := a.ensure()
	r.URL = meta.URL
	r.StatusCode = meta.StatusCode
	r.Header = meta.Header
	r.ExpectedContentLength = meta.ExpectedContentLength
	r.MIMEType = meta.MIMEType
	r.TextEncoding = meta.TextEncoding
}

func (a *accumulator) body(chunk []byte) {
	r := a.ensure()
	r.Body = append(r.Body, chunk...)
}

func (a *accumulator) file(location string) {
	a.ensure().FileLocation = location
}

func (a *accumulator) response() *Response { return a.resp }

// Progress is a snapshot of bytes moved for a transfer
type Progress struct {
	Completed int64
	Total     int64
	// Fraction is Completed/Total in [0,1], or 0 when Total is unknown.
	Fraction float64
}

// NewProgress computes the fraction for completed out of total bytes
func NewProgress(completed, total int64) Progress {
	p := Progress{Completed: completed, Total: total}
	if total > 0 {
		p.Fraction = float64(completed) / float64(total)
		if p.Fraction > 1 {
			p.Fraction = 1
		}
		if p.Fraction < 0 {
			p.Fraction = 0
		}
	}
	return p
}
