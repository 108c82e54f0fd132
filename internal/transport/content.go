package transport

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
)

// AcceptEncoding is advertised on every request that does not set its own.
const AcceptEncoding = "gzip, deflate, zstd"

// sniffLen is how many body bytes are inspected for MIME/charset detection
const sniffLen = 512

// decodeBody wraps r according to the response Content-Encoding. Unknown
// encodings are passed through untouched. The bool reports whether the
// body length differs from the wire length.
func decodeBody(r io.Reader, encoding string) (io.ReadCloser, bool, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), false, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, false, err
		}
		return zr, true, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, false, err
		}
		return zr, true, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, false, err
		}
		return zr.IOReadCloser(), true, nil
	default:
		return io.NopCloser(r), false, nil
	}
}

// sniffContent derives MIME type and text encoding from the Content-Type
// header, falling back to content detection on the first body bytes.
func sniffContent(h http.Header, head []byte) (mimeType, encoding string) {
	if ct := h.Get("Content-Type"); ct != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			mimeType = mt
			encoding = strings.ToLower(params["charset"])
		}
	}

	if mimeType == "" && len(head) > 0 {
		detected := mimetype.Detect(head).String()
		if mt, params, err := mime.ParseMediaType(detected); err == nil {
			mimeType = mt
			if encoding == "" {
				encoding = strings.ToLower(params["charset"])
			}
		}
	}

	if encoding != "" || len(head) == 0 {
		return mimeType, encoding
	}

	switch {
	case mimeType == "application/json" || strings.HasSuffix(mimeType, "+json"):
		encoding = "utf-8"
	case strings.HasPrefix(mimeType, "text/"):
		encoding = detectCharset(head)
	}
	return mimeType, encoding
}

func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// uploadContentType picks a Content-Type for a request body
func uploadContentType(body []byte, file string) string {
	if file != "" {
		if m, err := mimetype.DetectFile(file); err == nil {
			return m.String()
		}
		return "application/octet-stream"
	}
	return mimetype.Detect(body).String()
}

// progressReader reports every read to fn
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(n, sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(int64(n), p.sent, p.total)
	}
	return n, err
}
