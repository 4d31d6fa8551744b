package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hazyhaar/bulkvis/auth"
	"github.com/hazyhaar/bulkvis/export"
	"github.com/hazyhaar/bulkvis/horosafe"
	"github.com/hazyhaar/bulkvis/observability"
	"github.com/hazyhaar/bulkvis/plot"
	"github.com/hazyhaar/bulkvis/session"
	"github.com/hazyhaar/bulkvis/shield"
	"github.com/hazyhaar/bulkvis/source"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.cfg.Version,
		"sessions": s.cfg.Registry.Len(),
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": source.Formats()})
}

type loadRequest struct {
	Location      string   `json:"location"`
	Key           string   `json:"key"`
	States        []string `json:"states,omitempty"`
	IncludeSignal bool     `json:"include_signal,omitempty"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Location == "" || req.Key == "" {
		writeError(w, http.StatusBadRequest, "parse", errors.New("location and key are required"))
		return
	}

	sess := sessionFrom(r.Context())
	v, err := sess.Load(r.Context(), req.Location, req.Key)
	if err == nil && req.States != nil {
		v, err = sess.Reload(r.Context(), req.States)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.NewLoadResult(v, req.IncludeSignal))
}

type reloadRequest struct {
	States []string `json:"states"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := sessionFrom(r.Context()).Reload(r.Context(), req.States)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.NewAnnotationsResult(v))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.cfg.Registry.Remove(sess.ID); err != nil {
		shield.GetLogger(r.Context()).Warn("server: close session", "error", err)
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// current returns the session's view or writes the no_data error.
func (s *Server) current(w http.ResponseWriter, r *http.Request) *session.View {
	v := sessionFrom(r.Context()).View()
	if v == nil {
		s.fail(w, r, source.ErrNoData)
	}
	return v
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if v := s.current(w, r); v != nil {
		writeJSON(w, http.StatusOK, session.NewLoadResult(v, false))
	}
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if v := s.current(w, r); v != nil {
		writeJSON(w, http.StatusOK, v.Slice)
	}
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	v := s.current(w, r)
	if v == nil {
		return
	}
	if states, ok := r.URL.Query()["states"]; ok {
		var err error
		if v, err = sessionFrom(r.Context()).Reload(r.Context(), splitStates(states)); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, session.NewAnnotationsResult(v))
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	v := s.current(w, r)
	if v == nil {
		return
	}
	if v.Context == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, v.Context)
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := sessionFrom(r.Context()).Keys(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	v := s.current(w, r)
	if v == nil {
		return
	}
	opts := plot.Options{
		Width:  queryInt(r, "width", s.cfg.PlotWidth),
		Height: queryInt(r, "height", s.cfg.PlotHeight),
		Title:  v.Label,
		Format: plot.PNG,
	}
	if strings.HasSuffix(r.URL.Path, ".svg") {
		opts.Format = plot.SVG
	}
	if !v.Format.Windowed() {
		opts.XName = "Sample index"
	}
	if opts.Width > 4000 || opts.Height > 4000 {
		writeError(w, http.StatusBadRequest, "parse", errors.New("plot size is limited to 4000x4000"))
		return
	}

	img, err := plot.Render(v.Slice, v.Markers(), opts)
	if errors.Is(err, plot.ErrTooFewPoints) {
		writeError(w, http.StatusUnprocessableEntity, "plot", err)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", opts.Format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse", err)
		return
	}
	data, name, err := sessionFrom(r.Context()).Download(r.Context(), format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []observability.ActionEvent{}})
		return
	}
	events, err := s.cfg.History.Recent(r.Context(), observability.Filter{
		SessionID: sessionFrom(r.Context()).ID,
		Action:    r.URL.Query().Get("action"),
		Limit:     queryInt(r, "limit", 50),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		events = []observability.ActionEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// decode reads a JSON body of at most the configured size. An empty body
// leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := horosafe.LimitedReadAll(r.Body, s.cfg.Shield.MaxBody)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "parse", err)
		return false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, "parse", fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	return true
}

// fail maps err to its kind and status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := source.Kind(err)
	status := statusOf(kind)
	log := shield.GetLogger(r.Context())
	if status >= 500 {
		log.Error("server: request failed", "kind", kind, "error", err)
	} else {
		log.Info("server: request rejected", "kind", kind, "error", err)
	}
	writeError(w, status, kind, err)
}

func statusOf(kind string) int {
	switch kind {
	case "parse", "unsupported_format", "window_too_large":
		return http.StatusBadRequest
	case "read_not_found", "no_data":
		return http.StatusNotFound
	case "context_decode":
		return http.StatusUnprocessableEntity
	case "source_open":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// splitStates accepts repeated and comma-separated states parameters. A
// single empty value selects nothing.
func splitStates(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error(), "kind": kind})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
