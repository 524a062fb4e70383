// Package background holds a session's reference frame.
package background

import (
	"sync"

	"github.com/kexley/chromakeyd/pkg/frame"
)

// Store keeps at most one reference frame. Each session owns exactly
// one store; the mutex only guards against an admin triggered Reset
// racing the session loop.
type Store struct {
	mu  sync.RWMutex
	ref *frame.Frame
}

func NewStore() *Store {
	return &Store{}
}

// SetIfAbsent captures f as the reference frame if none is held yet
// and reports whether the capture happened. Later calls are no-ops
// until Reset.
func (s *Store) SetIfAbsent(f *frame.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref != nil {
		return false
	}
	s.ref = f
	return true
}

// GetOrSet captures f as the reference frame if none is held yet,
// otherwise returns the held reference. Capture and fetch happen under
// one lock so a concurrent Reset can never leave the caller holding a
// nil reference. The returned frame is never nil.
func (s *Store) GetOrSet(f *frame.Frame) (*frame.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref == nil {
		s.ref = f
		return f, true
	}
	return s.ref, false
}

// Get returns the held reference frame, or nil before first capture.
// The returned frame is shared and must not be mutated.
func (s *Store) Get() *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ref
}

// Reset clears the reference so the next frame is captured anew, for
// example after the scene lighting changed. Never invoked implicitly.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = nil
}
