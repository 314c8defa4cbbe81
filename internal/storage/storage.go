package storage

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

type entry[T io.Closer] struct {
	value    T
	lastSeen time.Time
}

// SessionStore keeps live sessions in memory and tears them down on removal.
type SessionStore[T io.Closer] struct {
	sessions map[string]*entry[T]
	mu       sync.RWMutex
	now      func() time.Time
}

func New[T io.Closer]() *SessionStore[T] {
	return &SessionStore[T]{
		sessions: make(map[string]*entry[T]),
		now:      time.Now,
	}
}

// Get returns the session and marks it as recently used.
func (s *SessionStore[T]) Get(sessionID string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.sessions[sessionID]
	if !exists {
		var zero T
		return zero, false
	}
	e.lastSeen = s.now()
	return e.value, true
}

func (s *SessionStore[T]) Set(sessionID string, session T) {
	s.mu.Lock()
	previous, exists := s.sessions[sessionID]
	s.sessions[sessionID] = &entry[T]{value: session, lastSeen: s.now()}
	s.mu.Unlock()

	if exists {
		closeSession(sessionID, previous.value)
	}
}

func (s *SessionStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes and closes the session. It reports whether the session existed.
func (s *SessionStore[T]) Delete(sessionID string) bool {
	s.mu.Lock()
	e, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		closeSession(sessionID, e.value)
	}
	return exists
}

// Sweep closes sessions idle for longer than maxIdle and returns how many were removed.
func (s *SessionStore[T]) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	expired := make(map[string]T)
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			expired[id] = e.value
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for id, session := range expired {
		closeSession(id, session)
	}
	return len(expired)
}

// CloseAll tears down every session.
func (s *SessionStore[T]) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry[T])
	s.mu.Unlock()

	for id, e := range sessions {
		closeSession(id, e.value)
	}
}

func closeSession[T io.Closer](id string, session T) {
	if err := session.Close(); err != nil {
		slog.Warn("Failed to close session", "session_id", id, "err", err)
	}
}
