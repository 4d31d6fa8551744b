// CLAUDE:SUMMARY Maps session ids to sessions sharing one memo; idle sessions are closed lazily on access.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/bulkvis/idgen"
)

// Registry owns every live session of a server.
type Registry struct {
	cfg     Config
	memo    *Memo
	newID   idgen.Generator
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	swept    time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator sets the session id generator (default: "sess_" + 20 char NanoID).
func WithIDGenerator(gen idgen.Generator) RegistryOption {
	return func(r *Registry) { r.newID = gen }
}

// WithIdleTTL closes sessions unused for d (default: 30 minutes). Zero keeps them forever.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, opts ...RegistryOption) (*Registry, error) {
	cfg.defaults()
	memo, err := NewMemo(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("session: memo: %w", err)
	}
	r := &Registry{
		cfg:      cfg,
		memo:     memo,
		newID:    idgen.Prefixed("sess_", idgen.NanoID(20)),
		idleTTL:  30 * time.Minute,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Get returns the session for id, creating a new one when id is empty or
// unknown. created reports whether a new id was issued.
func (r *Registry) Get(id string) (s *Session, created bool) {
	r.sweep()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && id != "" {
		return s, false
	}
	s = newSession(r.newID(), r.cfg, r.memo)
	r.sessions[s.ID] = s
	return s, true
}

// Lookup returns an existing session.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// Close closes every session.
func (r *Registry) Close() error {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var first error
	for _, s := range all {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sweep closes idle sessions at most once per minute.
func (r *Registry) sweep() {
	if r.idleTTL <= 0 {
		return
	}
	now := r.now()

	r.mu.Lock()
	if now.Sub(r.swept) < time.Minute {
		r.mu.Unlock()
		return
	}
	r.swept = now
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idleTTL {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		r.cfg.Logger.Debug("session: expired", "session", s.ID)
		s.Close()
	}
}
