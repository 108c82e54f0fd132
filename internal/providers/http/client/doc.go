// Package client is the request facade over the session layer.
//
// A Client turns method, URL, headers and body into transport requests,
// picks the pooled session for the request's configuration and returns a
// Handle for the resulting transfer:
//   - Send: in-memory request and response bodies
//   - SendUpload: streams a local file as the request body
//   - SendDownload: saves the response body to a destination file
//
// Every started transfer completes exactly once. Errors found while building
// the request (bad URL, missing upload file) are returned synchronously;
// everything after that arrives through the Handle.
//
// Example Usage:
//
//	c := client.New(client.Config{Logger: logger})
//	defer c.Close()
//
//	h, err := c.Send(ctx, client.Request{Method: "GET", URL: "https://example.test/get"})
//	if err != nil {
//		return err
//	}
//	resp, err := h.Wait(ctx)
package client
