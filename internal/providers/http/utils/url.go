package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when a request URL cannot be built
var ErrInvalidURL = errors.New("invalid url")

// ParseURL parses an absolute http(s) URL
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

// BuildURL joins path onto base and merges query into the base query.
// Values in query replace base values with the same key.
func BuildURL(base, path string, query url.Values) (*url.URL, error) {
	u, err := ParseURL(base)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if strings.Contains(path, "://") {
			return nil, fmt.Errorf("%w: path %q must be relative", ErrInvalidURL, path)
		}
		rel, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(rel.Path, "/")
		u.RawPath = ""
		if rel.RawQuery != "" {
			q := u.Query()
			for k, v := range rel.Query() {
				q[k] = v
			}
			u.RawQuery = q.Encode()
		}
	}

	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
