/*
Package tracing provides lightweight request tracing for outgoing transfers.

Every facade request opens a span; its trace and span IDs are injected into the
outgoing request as X-Trace-ID / X-Span-ID so servers can correlate logs. Finished
spans are buffered and logged at debug level through zap by a collector goroutine.

# Usage

	tracer := tracing.New("httplayer", logger)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "GET /users")
	span.Inject(req.Header)
	// ... transfer completes ...
	span.SetStatus(resp.StatusCode)
	span.Finish()
	tracer.Submit(span)
*/
package tracing
