// CLAUDE:SUMMARY HTTP middleware for the bulkvis dashboard: security headers, HEAD handling, body caps, trace ids with per-request loggers, per-client rate limits.
// Package shield provides the HTTP middleware stack of the bulkvis server.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(shield.Options{MaxBody: 64 << 10}) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// Options configures Stack.
type Options struct {
	// MaxBody caps request bodies in bytes. Zero means 64 KiB.
	MaxBody int64

	// Limits maps "METHOD /path" to a per-client rate. Empty disables limiting.
	Limits map[string]Limit
}

// Stack returns the middleware chain in order:
// HeadToGet, SecurityHeaders, MaxBody, TraceID, then the rate limiter when
// limits are configured.
func Stack(opts Options) []func(http.Handler) http.Handler {
	if opts.MaxBody <= 0 {
		opts.MaxBody = 64 << 10
	}
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(opts.MaxBody),
		TraceID,
	}
	if len(opts.Limits) > 0 {
		stack = append(stack, NewRateLimiter(opts.Limits).Middleware)
	}
	return stack
}
