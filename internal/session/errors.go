package session

import (
	"errors"

	"github.com/GriffinCanCode/httplayer/internal/transport"
)

var (
	// ErrSessionInvalidated is returned for work submitted to a session that
	// is no longer valid, and delivered to transfers whose session became
	// invalid while they were in flight.
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrTaskCreationFailed wraps the transport's reason for refusing a task.
	ErrTaskCreationFailed = errors.New("task creation failed")
	// ErrNoResponse completes a transfer that finished without an error and
	// without any response.
	ErrNoResponse = errors.New("no response received")
	// ErrCancelled is the completion error of cancelled transfers.
	ErrCancelled = transport.ErrCancelled
	// ErrFileRelocation is reported when a finished download cannot be moved
	// to its destination.
	ErrFileRelocation = errors.New("could not relocate downloaded file")
)
