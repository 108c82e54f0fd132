package transport

import (
	"errors"
	"net/http"
	"net/url"
)

var (
	// ErrCancelled is reported through Delegate.DidComplete for tasks that were
	// cancelled, either by the caller or by a Cancel disposition.
	ErrCancelled = errors.New("transfer cancelled")
	// ErrInvalidated is returned when creating a task on a session that is
	// finishing or has been invalidated.
	ErrInvalidated = errors.New("transport session invalidated")
	// ErrInvalidRequest is returned when a task is requested without a method or absolute URL.
	ErrInvalidRequest = errors.New("invalid transport request")
)

// TaskID identifies one task within the process
type TaskID string

// TaskKind is the flavour of a task
type TaskKind int

const (
	KindData TaskKind = iota
	KindUpload
	KindDownload
)

func (k TaskKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindUpload:
		return "upload"
	case KindDownload:
		return "download"
	default:
		return "unknown"
	}
}

// TaskState mirrors the transport's own view of a task
type TaskState int

const (
	TaskSuspended TaskState = iota
	TaskRunning
	TaskCanceling
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskSuspended:
		return "suspended"
	case TaskRunning:
		return "running"
	case TaskCanceling:
		return "canceling"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Request is the transport-native request
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Validate checks the request can be handed to a transport
func (r *Request) Validate() error {
	if r == nil || r.Method == "" {
		return ErrInvalidRequest
	}
	if r.URL == nil || !r.URL.IsAbs() {
		return ErrInvalidRequest
	}
	return nil
}

// Response is the header-level metadata of a response, delivered once per task
// before any body bytes.
type Response struct {
	URL                   *url.URL
	StatusCode            int
	Header                http.Header
	ExpectedContentLength int64 // -1 when unknown
	MIMEType              string
	TextEncoding          string
}

// Disposition tells the transport whether to continue after response headers
type Disposition int

const (
	Allow Disposition = iota
	Cancel
)

// Task is one in-flight network operation. Tasks are created suspended.
type Task interface {
	ID() TaskID
	Kind() TaskKind
	State() TaskState
	Resume()
	Suspend()
	Cancel()
}

// Session performs network I/O for one configuration and reports progress
// through the Delegate it was created with.
type Session interface {
	Configuration() Configuration
	DataTask(req *Request) (Task, error)
	UploadTask(req *Request, file string) (Task, error)
	DownloadTask(req *Request) (Task, error)
	// FinishTasksAndInvalidate refuses new tasks and reports DidBecomeInvalid
	// once running tasks complete.
	FinishTasksAndInvalidate()
	// InvalidateAndCancel cancels every task and reports DidBecomeInvalid.
	InvalidateAndCancel()
}

// Delegate receives asynchronous session events. Calls may arrive from any
// goroutine; events for a single task arrive in order.
type Delegate interface {
	DidBecomeInvalid(err error)
	DidSendBodyData(task Task, bytesSent, totalBytesSent, totalBytesExpected int64)
	DidComplete(task Task, err error)
	DidReceiveResponse(task Task, resp *Response) Disposition
	DidReceiveData(task Task, data []byte)
	// DidFinishDownloading hands over a temporary file that is removed as soon
	// as the call returns.
	DidFinishDownloading(task Task, location string)
	DidWriteData(task Task, bytesWritten, totalBytesWritten, totalBytesExpected int64)
	// DidFinishEvents fires for background configurations when the last queued
	// task has completed.
	DidFinishEvents()
}

// Factory creates a transport session bound to cfg
type Factory func(cfg Configuration, delegate Delegate) (Session, error)
