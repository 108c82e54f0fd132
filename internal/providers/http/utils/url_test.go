package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https", "https://example.test/get", false},
		{"http with port", "http://127.0.0.1:8080", false},
		{"trims space", "  https://example.test  ", false},
		{"relative", "/get", true},
		{"unsupported scheme", "ftp://example.test/file", true},
		{"no host", "https://", true},
		{"garbage", "://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.Host)
		})
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{"base only", "https://example.test", "", nil, "https://example.test"},
		{"path onto bare host", "https://example.test", "get", nil, "https://example.test/get"},
		{"trailing and leading slashes", "https://example.test/api/", "/users", nil, "https://example.test/api/users"},
		{"nested base path", "https://example.test/api", "users/1", nil, "https://example.test/api/users/1"},
		{"query", "https://example.test", "search", url.Values{"q": {"go lang"}}, "https://example.test/search?q=go+lang"},
		{"query merges with base", "https://example.test/x?a=1&b=2", "", url.Values{"b": {"3"}}, "https://example.test/x?a=1&b=3"},
		{"path query", "https://example.test", "items?page=2", nil, "https://example.test/items?page=2"},
		{"multi value", "https://example.test", "", url.Values{"id": {"1", "2"}}, "https://example.test?id=1&id=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := BuildURL(tt.base, tt.path, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}

	t.Run("absolute path is rejected", func(t *testing.T) {
		_, err := BuildURL("https://example.test", "https://other.test/x", nil)
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("bad base", func(t *testing.T) {
		_, err := BuildURL("not a url", "x", nil)
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}
