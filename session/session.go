// CLAUDE:SUMMARY Per-client session owning at most one open recording: load, reload-plot and download actions with memoized loads and action history.
// Package session owns the state behind one dashboard client.
//
// A Session holds at most one open source.Source and the View of the last
// successful load. Every action runs to completion under the session
// mutex:
//
//	Load      close the previous handle, open, slice, annotate, read context
//	Reload    re-apply the label selection to the current view
//	Download  export the current slice as fast5 or pod5 bytes
//
// Loads are memoized by (location, key, frequency, stride) in an LRU shared
// by the Registry. The cache only skips work, it never changes results.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazyhaar/bulkvis/export"
	"github.com/hazyhaar/bulkvis/idgen"
	"github.com/hazyhaar/bulkvis/kit"
	"github.com/hazyhaar/bulkvis/observability"
	"github.com/hazyhaar/bulkvis/source"
)

// Config configures sessions.
type Config struct {
	Source source.Config

	// CacheSize is the number of memoized loads (default: 16). Negative disables the cache.
	CacheSize int

	// History receives one event per action. Nil disables recording.
	History *observability.History

	// ReadIDs generates the ids of exported reads (default: UUIDv4).
	ReadIDs idgen.Generator

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.CacheSize == 0 {
		c.CacheSize = 16
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type cacheKey struct {
	location string
	key      string
	freq     float64
	stride   int
}

// Memo caches loaded views.
type Memo = lru.Cache[cacheKey, *View]

// NewMemo returns an LRU of size entries, or nil when size <= 0.
func NewMemo(size int) (*Memo, error) {
	if size <= 0 {
		return nil, nil
	}
	return lru.New[cacheKey, *View](size)
}

// Session is one client's state. Methods are safe for concurrent use and
// serialised.
type Session struct {
	ID string

	cfg  Config
	memo *Memo

	mu       sync.Mutex
	src      *source.Source
	view     *View
	selected []string // nil: every declared label
	lastUsed atomic.Int64 // unix nanoseconds
}

// New creates a standalone session with its own memo.
func New(id string, cfg Config) (*Session, error) {
	cfg.defaults()
	memo, err := NewMemo(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("session: memo: %w", err)
	}
	return newSession(id, cfg, memo), nil
}

func newSession(id string, cfg Config, memo *Memo) *Session {
	s := &Session{ID: id, cfg: cfg, memo: memo}
	s.touch()
	return s
}

// Load replaces the current recording and view. The previous handle is
// closed first; on failure the session holds neither handle nor view.
func (s *Session) Load(ctx context.Context, location, key string) (view *View, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	start := time.Now()
	defer func() {
		ev := s.event(ctx, observability.ActionLoad, start, err)
		ev.Location, ev.Position = location, key
		if view != nil {
			ev.Format, ev.Samples = string(view.Format), view.Slice.Len()
		}
		s.cfg.History.Record(ctx, ev)
	}()

	s.reset()

	ck := cacheKey{location: location, key: key, freq: s.cfg.Source.Frequency, stride: s.cfg.Source.Stride}
	if s.memo != nil {
		if cached, ok := s.memo.Get(ck); ok {
			s.logger(ctx).Debug("session: load served from memo", "location", location, "key", key)
			s.view = cached.withSelection(s.selection(cached.Catalog))
			return s.view, nil
		}
	}

	src, err := source.Open(ctx, location, s.cfg.Source)
	if err != nil {
		return nil, err
	}
	s.src = src

	loaded, err := read(src, location, key)
	if err != nil {
		s.reset()
		return nil, err
	}
	if s.memo != nil {
		s.memo.Add(ck, loaded)
	}
	s.view = loaded.withSelection(s.selection(loaded.Catalog))
	return s.view, nil
}

// read runs the whole data path against an open source.
func read(src *source.Source, location, key string) (*View, error) {
	pos, err := src.Parse(key)
	if err != nil {
		return nil, err
	}
	slice, err := src.ReadSlice(pos)
	if err != nil {
		return nil, err
	}
	v := &View{
		Location: location,
		Format:   src.Format(),
		Key:      key,
		Position: pos,
		Label:    pos.ReadID,
		Slice:    slice,
		Catalog:  source.Catalog{},
	}
	if src.Format().Windowed() {
		v.Label = pos.Label(src.ChannelTemplate())
		rows, catalog, err := src.Annotations(pos.Channel, pos.Start, pos.End)
		if err != nil {
			return nil, err
		}
		v.Annotations = rows
		if catalog != nil {
			v.Catalog = catalog
		}
	}
	if v.Context, err = src.Context(); err != nil {
		return nil, err
	}
	return v, nil
}

// selection rebuilds the label selection against a new catalog. An empty
// catalog clears it so the next recording with states starts fully selected.
func (s *Session) selection(catalog source.Catalog) []string {
	if len(catalog) == 0 {
		s.selected = nil
		return []string{}
	}
	sel := intersect(catalog, s.selected)
	s.selected = sel
	return sel
}

// Reload applies a new label selection to the current view. Labels not in
// the catalog are ignored; nil selects every label.
func (s *Session) Reload(ctx context.Context, selected []string) (view *View, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	start := time.Now()
	defer func() {
		ev := s.event(ctx, observability.ActionReload, start, err)
		if view != nil {
			ev.Location, ev.Position, ev.Samples = view.Location, view.Key, len(view.Markers())
		}
		s.cfg.History.Record(ctx, ev)
	}()

	if s.view == nil {
		return nil, source.ErrNoData
	}
	if len(s.view.Catalog) == 0 {
		return s.view, nil
	}
	if selected == nil {
		s.selected = nil
	} else {
		s.selected = intersect(s.view.Catalog, selected)
	}
	s.view = s.view.withSelection(intersect(s.view.Catalog, s.selected))
	return s.view, nil
}

// Download exports the current slice. It returns the file bytes and the
// suggested file name.
func (s *Session) Download(ctx context.Context, format export.Format) (data []byte, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	start := time.Now()
	defer func() {
		ev := s.event(ctx, observability.ActionDownload, start, err)
		ev.Format = string(format)
		if s.view != nil {
			ev.Location, ev.Position, ev.Samples = s.view.Location, s.view.Key, len(s.view.Slice.Raw)
		}
		s.cfg.History.Record(ctx, ev)
	}()

	if s.view == nil {
		return nil, "", source.ErrNoData
	}
	data, err = export.Export(format, s.view.Slice, s.view.Context, export.Options{NewID: s.cfg.ReadIDs})
	if err != nil {
		return nil, "", err
	}
	return data, "signal." + string(format), nil
}

// View returns the current view, or nil before the first successful load.
func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.view
}

// Keys lists the positions of the loaded recording: channel names for bulk
// files, read ids otherwise. A view served from the memo reopens the
// recording.
func (s *Session) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.view == nil {
		return nil, source.ErrNoData
	}
	if s.src == nil {
		src, err := source.Open(ctx, s.view.Location, s.cfg.Source)
		if err != nil {
			return nil, err
		}
		s.src = src
	}
	return s.src.Keys()
}

// Close releases the open recording and forgets the view.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset()
}

func (s *Session) reset() error {
	s.view = nil
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	if err != nil {
		s.cfg.Logger.Warn("session: close source", "session", s.ID, "error", err)
	}
	return err
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

func (s *Session) event(ctx context.Context, action string, start time.Time, err error) observability.ActionEvent {
	ev := observability.ActionEvent{
		SessionID:  s.ID,
		RequestID:  kit.GetRequestID(ctx),
		RemoteAddr: kit.GetRemoteAddr(ctx),
		Action:     action,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		ev.ErrorKind = source.Kind(err)
		ev.ErrorMessage = err.Error()
	}
	return ev
}

func (s *Session) logger(ctx context.Context) *slog.Logger {
	l := s.cfg.Logger.With("session", s.ID)
	if tid := kit.GetTraceID(ctx); tid != "" {
		l = l.With("trace_id", tid)
	}
	return l
}
