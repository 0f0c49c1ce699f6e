// Package state owns the single authoritative copy of the device state.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// ErrNotInFlight is returned by Commit and Abort when no command holds the store.
var ErrNotInFlight = errors.New("no command in flight")

// Reader is the read-only view handed to the HTTP layer.
type Reader interface {
	Snapshot() entity.ServerState
}

// Store guards ServerState. The mutex is only ever held for a copy or an assignment,
// so Snapshot never waits on device I/O.
type Store struct {
	mu    sync.RWMutex
	state entity.ServerState
	now   func() time.Time
}

var _ Reader = (*Store)(nil)

// Option -.
type Option func(*Store)

// WithClock replaces time.Now for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store whose current mode is initial.
func New(initial entity.DeviceMode, opts ...Option) *Store {
	s := &Store{now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	s.state = entity.ServerState{
		CurrentMode: initial,
		LastUpdated: s.now().UTC(),
	}

	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() entity.ServerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// BeginCommand claims the in-flight marker. It returns false if another command holds it.
func (s *Store) BeginCommand() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight {
		return false
	}

	s.state.InFlight = true
	s.state.Revision++

	return true
}

// Commit records the confirmed mode and releases the in-flight marker.
func (s *Store) Commit(mode entity.DeviceMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.InFlight {
		return ErrNotInFlight
	}

	s.state.CurrentMode = mode
	s.state.LastUpdated = s.now().UTC()
	s.state.InFlight = false
	s.state.Revision++

	return nil
}

// Abort releases the in-flight marker and leaves the mode untouched.
func (s *Store) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.InFlight {
		return ErrNotInFlight
	}

	s.state.InFlight = false
	s.state.Revision++

	return nil
}
