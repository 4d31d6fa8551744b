package shield

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/bulkvis/kit"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultHeaders())(http.HandlerFunc(ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing X-Content-Type-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "img-src 'self' data:") {
		t.Fatalf("csp: %q", rec.Header().Get("Content-Security-Policy"))
	}

	partial := SecurityHeaders(HeaderConfig{XFrameOptions: "SAMEORIGIN"})(http.HandlerFunc(ok))
	rec = httptest.NewRecorder()
	partial.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if _, set := rec.Header()["Content-Security-Policy"]; set {
		t.Fatal("empty header must not be set")
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { method = r.Method }))
	req := httptest.NewRequest("HEAD", "/health", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if method != "GET" || req.Method != "HEAD" {
		t.Fatalf("handler saw %s, caller request became %s", method, req.Method)
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/load", strings.NewReader(strings.Repeat("x", 32))))
	if readErr == nil || readErr.Error() != "http: request body too large" {
		t.Fatalf("read error: %v", readErr)
	}
}

func TestTraceID(t *testing.T) {
	var traceID, remote string
	var logger *slog.Logger
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = kit.GetTraceID(r.Context())
		remote = kit.GetRemoteAddr(r.Context())
		logger = GetLogger(r.Context())
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/signal", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	h.ServeHTTP(rec, req)

	if len(traceID) != 12 || rec.Header().Get("X-Trace-ID") != traceID {
		t.Fatalf("trace id %q header %q", traceID, rec.Header().Get("X-Trace-ID"))
	}
	if remote != "203.0.113.9" {
		t.Fatalf("remote: %q", remote)
	}
	if logger == nil || logger == slog.Default() {
		t.Fatal("expected per-request logger")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(map[string]Limit{
		"POST /api/load": {MaxRequests: 2, Window: time.Minute},
	})
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(ok))

	do := func(method, path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("POST", "/api/load", "10.0.0.1"); rec.Code != 200 {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := do("POST", "/api/load", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third request: %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["kind"] != "rate_limited" {
		t.Fatalf("body: %v", body)
	}

	if rec := do("POST", "/api/load", "10.0.0.2"); rec.Code != 200 {
		t.Fatalf("other client: %d", rec.Code)
	}
	if rec := do("GET", "/api/signal", "10.0.0.1"); rec.Code != 200 {
		t.Fatalf("unlimited endpoint: %d", rec.Code)
	}

	now = now.Add(2 * time.Minute)
	if rec := do("POST", "/api/load", "10.0.0.1"); rec.Code != 200 {
		t.Fatalf("after window: %d", rec.Code)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", " 198.51.100.4 , 10.0.0.1")
	if ip := ExtractIP(req); ip != "198.51.100.4" {
		t.Fatalf("xff: %q", ip)
	}
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "bad"
	if ip := ExtractIP(req); ip != "bad" {
		t.Fatalf("fallback: %q", ip)
	}
}

func TestStack(t *testing.T) {
	h := chain(http.HandlerFunc(ok), Stack(Options{Limits: map[string]Limit{"GET /x": {MaxRequests: 1, Window: time.Hour}}})...)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("HEAD", "/x", nil))
	if rec.Code != 200 || rec.Header().Get("X-Trace-ID") == "" {
		t.Fatalf("code %d headers %v", rec.Code, rec.Header())
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("limited: %d", rec.Code)
	}
}
