package requests

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/httplayer/internal/session"
	"github.com/bytedance/sonic"
)

// ErrEmptyBody is returned when decoding a response without a body
var ErrEmptyBody = errors.New("response body is empty")

const contentTypeJSON = "application/json"

// EncodeJSON marshals v for use as a request body
func EncodeJSON(v any) ([]byte, error) {
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

// DecodeJSON unmarshals the in-memory body of resp into v
func DecodeJSON(resp *session.Response, v any) error {
	if resp == nil {
		return session.ErrNoResponse
	}
	if len(resp.Body) == 0 {
		return ErrEmptyBody
	}
	if err := sonic.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
