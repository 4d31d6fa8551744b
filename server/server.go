// CLAUDE:SUMMARY chi HTTP surface of the dashboard: cookie-bound sessions, load/reload/download actions, series, annotations, context, plot and history endpoints.
// Package server exposes bulkvis sessions over HTTP.
//
// Every browser gets a session bound by the signed bulkvis_session cookie.
// Actions map to POST /api/load, POST /api/reload and GET /api/download; the
// other GET endpoints read the current view. Errors are JSON objects
// {"error", "kind"} with the status of their kind.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/bulkvis/auth"
	"github.com/hazyhaar/bulkvis/idgen"
	"github.com/hazyhaar/bulkvis/kit"
	"github.com/hazyhaar/bulkvis/observability"
	"github.com/hazyhaar/bulkvis/session"
	"github.com/hazyhaar/bulkvis/shield"
)

// Config wires the server.
type Config struct {
	Registry *session.Registry
	History  *observability.History // optional

	// Secret signs session cookies (at least 32 bytes).
	Secret        []byte
	CookieTTL     time.Duration // default 24h
	SecureCookies bool

	PlotWidth  int
	PlotHeight int

	Shield  shield.Options
	Logger  *slog.Logger
	Version string
}

func (c *Config) defaults() {
	if c.CookieTTL <= 0 {
		c.CookieTTL = 24 * time.Hour
	}
	if c.Shield.MaxBody <= 0 {
		c.Shield.MaxBody = 64 << 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the HTTP handler.
type Server struct {
	cfg       Config
	requestID idgen.Generator
	router    chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	cfg.defaults()
	s := &Server{
		cfg:       cfg,
		requestID: idgen.Prefixed("req_", idgen.NanoID(12)),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.Stack(cfg.Shield) {
		r.Use(mw)
	}
	r.Use(s.withRequestID)
	r.Use(auth.Middleware(cfg.Secret))

	r.Get("/health", s.handleHealth)
	r.Get("/api/formats", s.handleFormats)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Post("/api/load", s.handleLoad)
		r.Post("/api/reload", s.handleReload)
		r.Post("/api/close", s.handleClose)
		r.Get("/api/view", s.handleView)
		r.Get("/api/signal", s.handleSignal)
		r.Get("/api/annotations", s.handleAnnotations)
		r.Get("/api/context", s.handleContext)
		r.Get("/api/keys", s.handleKeys)
		r.Get("/api/plot.png", s.handlePlot)
		r.Get("/api/plot.svg", s.handlePlot)
		r.Get("/api/download", s.handleDownload)
		r.Get("/api/history", s.handleHistory)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = s.requestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

type sessionKey struct{}

// withSession resolves the cookie's session, issuing a new one (and cookie)
// when it is missing, invalid or expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, created := s.cfg.Registry.Get(kit.GetSessionID(r.Context()))
		if created {
			token, err := auth.Sign(s.cfg.Secret, sess.ID, s.cfg.CookieTTL)
			if err != nil {
				shield.GetLogger(r.Context()).Error("server: sign session", "error", err)
				writeError(w, http.StatusInternalServerError, "internal", err)
				return
			}
			auth.SetSessionCookie(w, token, s.cfg.CookieTTL, s.cfg.SecureCookies)
		}
		ctx := kit.WithSessionID(r.Context(), sess.ID)
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}
