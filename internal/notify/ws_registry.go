package notify

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/observability"
)

var ErrNoSession = errors.New("no session for channel")

// Session wraps a websocket connection with a write lock, since gorilla
// connections allow only one concurrent writer.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Session) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(Event{Event: event, Data: payload})
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Registry maps logical channels to live sessions. A reconnect replaces the
// prior session for the same channel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(channel string, conn *websocket.Conn) *Session {
	s := &Session{conn: conn}
	r.mu.Lock()
	prev := r.sessions[channel]
	r.sessions[channel] = s
	r.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	} else {
		observability.WSConnections.Inc()
	}
	return s
}

// Drop removes the channel mapping, but only if it still points at the given
// session; a reconnect that already replaced it is left alone.
func (r *Registry) Drop(channel string, s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[channel]; ok && cur == s {
		delete(r.sessions, channel)
		observability.WSConnections.Dec()
	}
	r.mu.Unlock()
}

// Push implements Notifier. A recipient without a live session yields
// ErrNoSession, which callers treat as best-effort delivery loss.
func (r *Registry) Push(channel, event string, payload any) error {
	r.mu.RLock()
	s, ok := r.sessions[channel]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.Send(event, payload)
}
