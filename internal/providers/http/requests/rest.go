package requests

import (
	"context"
	"net/http"
	"net/url"

	"github.com/GriffinCanCode/httplayer/internal/providers/http/client"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/utils"
	"github.com/GriffinCanCode/httplayer/internal/transport"
)

// REST issues requests relative to BaseURL through Client
type REST struct {
	Client  *client.Client
	BaseURL string
	// Header is merged under per-call headers
	Header        http.Header
	Configuration transport.Configuration
}

// Do builds the URL from path and query and starts a data transfer
func (r *REST) Do(ctx context.Context, method, path string, query url.Values, body []byte, header http.Header) (*client.Handle, error) {
	u, err := utils.BuildURL(r.BaseURL, path, query)
	if err != nil {
		return nil, err
	}

	merged := r.Header.Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for k, vs := range header {
		merged.Del(k)
		for _, v := range vs {
			merged.Add(k, v)
		}
	}

	return r.Client.Send(ctx, client.Request{
		Method:        method,
		URL:           u.String(),
		Header:        merged,
		Body:          body,
		Configuration: r.Configuration,
	})
}

func (r *REST) Get(ctx context.Context, path string, query url.Values) (*client.Handle, error) {
	return r.Do(ctx, http.MethodGet, path, query, nil, nil)
}

func (r *REST) Delete(ctx context.Context, path string) (*client.Handle, error) {
	return r.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (r *REST) Post(ctx context.Context, path string, body []byte, contentType string) (*client.Handle, error) {
	return r.Do(ctx, http.MethodPost, path, nil, body, typed(contentType))
}

func (r *REST) Put(ctx context.Context, path string, body []byte, contentType string) (*client.Handle, error) {
	return r.Do(ctx, http.MethodPut, path, nil, body, typed(contentType))
}

func (r *REST) Patch(ctx context.Context, path string, body []byte, contentType string) (*client.Handle, error) {
	return r.Do(ctx, http.MethodPatch, path, nil, body, typed(contentType))
}

// PostJSON encodes v with sonic and posts it
func (r *REST) PostJSON(ctx context.Context, path string, v any) (*client.Handle, error) {
	return r.sendJSON(ctx, http.MethodPost, path, v)
}

func (r *REST) PutJSON(ctx context.Context, path string, v any) (*client.Handle, error) {
	return r.sendJSON(ctx, http.MethodPut, path, v)
}

func (r *REST) PatchJSON(ctx context.Context, path string, v any) (*client.Handle, error) {
	return r.sendJSON(ctx, http.MethodPatch, path, v)
}

// GetJSON fetches path, requires a 2xx status and decodes the body into v.
// It blocks until the transfer completes or ctx is done.
func (r *REST) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	h, err := r.Do(ctx, http.MethodGet, path, query, nil, http.Header{"Accept": {contentTypeJSON}})
	if err != nil {
		return err
	}
	resp, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	if err := Expect2xx(resp); err != nil {
		return err
	}
	return DecodeJSON(resp, v)
}

func (r *REST) sendJSON(ctx context.Context, method, path string, v any) (*client.Handle, error) {
	body, err := EncodeJSON(v)
	if err != nil {
		return nil, err
	}
	header := typed(contentTypeJSON)
	header.Set("Accept", contentTypeJSON)
	return r.Do(ctx, method, path, nil, body, header)
}

func typed(contentType string) http.Header {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return h
}
