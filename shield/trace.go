package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/bulkvis/kit"
)

// TraceID tags every request with a 12-hex-digit id echoed in X-Trace-ID.
// Handlers find the id and the client address through kit, and a logger
// already carrying both through GetLogger.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := newTraceID()
		client := ExtractIP(r)
		w.Header().Set("X-Trace-ID", traceID)

		ctx := kit.WithRemoteAddr(kit.WithTraceID(r.Context(), traceID), client)
		logger := slog.Default().With("trace_id", traceID, "client", client)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, LoggerKey, logger)))
	})
}

func newTraceID() string {
	var b [6]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// GetLogger falls back to slog.Default outside TraceID.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
