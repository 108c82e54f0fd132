/*
Package transport defines the task-based transport contract the session layer
is built on, and a net/http implementation of it.

A Session is created for one Configuration and reports everything that happens
to its tasks through a Delegate: response headers, body chunks, upload and
download progress, downloaded files and completion. Tasks start suspended.

NewHTTPFactory builds sessions on a resty client over a pooled net/http
transport. Responses are decoded (gzip, deflate, zstd) before they reach the
delegate, and MIME type and charset are sniffed when the server omits them.
Retries are never performed.
*/
package transport
