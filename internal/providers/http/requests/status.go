package requests

import (
	"fmt"

	"github.com/GriffinCanCode/httplayer/internal/session"
)

// Category groups HTTP status codes by their leading digit
type Category int

const (
	Unknown Category = iota
	Informational
	Success
	Redirection
	ClientError
	ServerError
)

func (c Category) String() string {
	switch c {
	case Informational:
		return "informational"
	case Success:
		return "success"
	case Redirection:
		return "redirection"
	case ClientError:
		return "client error"
	case ServerError:
		return "server error"
	default:
		return "unknown"
	}
}

// Classify maps a status code to its category
func Classify(status int) Category {
	switch {
	case status >= 100 && status < 200:
		return Informational
	case status >= 200 && status < 300:
		return Success
	case status >= 300 && status < 400:
		return Redirection
	case status >= 400 && status < 500:
		return ClientError
	case status >= 500 && status < 600:
		return ServerError
	default:
		return Unknown
	}
}

// StatusError reports a response outside the 2xx range
type StatusError struct {
	StatusCode int
	Category   Category
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s)", e.StatusCode, e.Category)
}

// Expect2xx returns a *StatusError unless resp carries a 2xx status
func Expect2xx(resp *session.Response) error {
	if resp == nil {
		return session.ErrNoResponse
	}
	if c := Classify(resp.StatusCode); c != Success {
		return &StatusError{StatusCode: resp.StatusCode, Category: c, Body: resp.Body}
	}
	return nil
}
