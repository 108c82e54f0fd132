package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
)

type httpTask struct {
	id      TaskID
	kind    TaskKind
	session *httpSession
	req     *Request
	file    string

	ctx    context.Context
	cancel context.CancelFunc
	start  sync.Once

	mu        sync.Mutex
	state     TaskState
	cancelled bool
	// resumed is closed while the task is running and replaced on suspend
	resumed chan struct{}
}

func (t *httpTask) ID() TaskID     { return t.id }
func (t *httpTask) Kind() TaskKind { return t.kind }

func (t *httpTask) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *httpTask) Resume() {
	t.mu.Lock()
	if t.state != TaskSuspended {
		t.mu.Unlock()
		return
	}
	t.state = TaskRunning
	close(t.resumed)
	t.mu.Unlock()

	t.start.Do(func() { go t.run() })
}

// Suspend pauses body transfer; an outstanding request stays open.
func (t *httpTask) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskRunning {
		return
	}
	t.state = TaskSuspended
	t.resumed = make(chan struct{})
}

func (t *httpTask) Cancel() {
	t.mu.Lock()
	if t.state == TaskCanceling || t.state == TaskCompleted {
		t.mu.Unlock()
		return
	}
	t.state = TaskCanceling
	t.cancelled = true
	t.mu.Unlock()

	t.cancel()
	// A never-resumed task still owes its delegate a completion.
	t.start.Do(func() { go t.run() })
}

// waitRunning blocks while the task is suspended
func (t *httpTask) waitRunning() error {
	t.mu.Lock()
	ch := t.resumed
	t.mu.Unlock()

	select {
	case <-t.ctx.Done():
		return ErrCancelled
	default:
	}
	select {
	case <-ch:
		return nil
	case <-t.ctx.Done():
		return ErrCancelled
	}
}

func (t *httpTask) run() {
	s := t.session
	err := t.execute()

	t.mu.Lock()
	if err != nil && t.cancelled {
		err = ErrCancelled
	}
	t.state = TaskCompleted
	t.mu.Unlock()

	s.delegate.DidComplete(t, err)
	t.cancel()
	s.taskDone(t)
}

func (t *httpTask) execute() error {
	if err := t.waitRunning(); err != nil {
		return err
	}
	if l := t.session.limiter; l != nil {
		if err := l.Wait(t.ctx); err != nil {
			return err
		}
	}
	return t.session.guard(t.req.URL.Host, t.transfer)
}

func (t *httpTask) transfer() error {
	s := t.session
	header := http.Header{}
	for k, v := range t.req.Header {
		header[k] = append([]string(nil), v...)
	}
	if header.Get("Accept-Encoding") == "" {
		header.Set("Accept-Encoding", AcceptEncoding)
	}

	r := s.client.R().
		SetContext(t.ctx).
		SetDoNotParseResponse(true)

	body, size, closeBody, err := t.requestBody()
	if err != nil {
		return err
	}
	defer closeBody()
	if body != nil {
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", uploadContentType(t.req.Body, t.file))
		}
		header.Set(contentLengthHint, strconv.FormatInt(size, 10))
		r.SetBody(&progressReader{r: body, total: size, fn: func(n, sent, total int64) {
			s.delegate.DidSendBodyData(t, n, sent, total)
		}})
	}
	r.SetHeaderMultiValues(header)

	resp, err := r.Execute(t.req.Method, t.req.URL.String())
	if err != nil {
		return err
	}
	raw := resp.RawBody()
	defer raw.Close()

	decoded, changed, err := decodeBody(raw, resp.Header().Get("Content-Encoding"))
	if err != nil {
		return err
	}
	defer decoded.Close()

	reader := bufio.NewReaderSize(decoded, s.opts.ChunkSize)
	head, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return err
	}

	meta := &Response{
		URL:                   t.req.URL,
		StatusCode:            resp.StatusCode(),
		Header:                resp.Header().Clone(),
		ExpectedContentLength: -1,
	}
	if rr := resp.RawResponse; rr != nil {
		if rr.Request != nil && rr.Request.URL != nil {
			meta.URL = rr.Request.URL
		}
		if !changed {
			meta.ExpectedContentLength = rr.ContentLength
		}
	}
	meta.MIMEType, meta.TextEncoding = sniffContent(meta.Header, head)

	if s.delegate.DidReceiveResponse(t, meta) == Cancel {
		t.Cancel()
		return ErrCancelled
	}

	if t.kind == KindDownload {
		return t.pumpToFile(reader, meta.ExpectedContentLength)
	}
	return t.pumpToDelegate(reader)
}

// requestBody opens the body source for data and upload tasks
func (t *httpTask) requestBody() (io.Reader, int64, func(), error) {
	noop := func() {}
	switch {
	case t.kind == KindUpload:
		f, err := os.Open(t.file)
		if err != nil {
			return nil, 0, noop, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, noop, err
		}
		return f, info.Size(), func() { f.Close() }, nil
	case len(t.req.Body) > 0:
		return bytes.NewReader(t.req.Body), int64(len(t.req.Body)), noop, nil
	default:
		return nil, 0, noop, nil
	}
}

func (t *httpTask) pumpToDelegate(r io.Reader) error {
	buf := make([]byte, t.session.opts.ChunkSize)
	for {
		if err := t.waitRunning(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.session.delegate.DidReceiveData(t, chunk)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (t *httpTask) pumpToFile(r io.Reader, expected int64) error {
	tmp, err := os.CreateTemp(t.session.opts.TempDir, "httplayer-*.download")
	if err != nil {
		return err
	}
	location := tmp.Name()
	defer os.Remove(location)

	buf := make([]byte, t.session.opts.ChunkSize)
	var written int64
	for {
		if err := t.waitRunning(); err != nil {
			tmp.Close()
			return err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				tmp.Close()
				return err
			}
			written += int64(n)
			t.session.delegate.DidWriteData(t, int64(n), written, expected)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			tmp.Close()
			return rerr
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	t.session.delegate.DidFinishDownloading(t, location)
	return nil
}
