// Package devicelink provides the DeviceLink implementations the server can be wired with.
package devicelink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
)

// FaultFunc decides whether the simulated device refuses a command. A nil error accepts it.
type FaultFunc func(current, target entity.DeviceMode) error

// Simulated is an in-process model of the BMC electronics. It takes latency to settle
// and can be told to fail.
type Simulated struct {
	mu      sync.Mutex
	mode    entity.DeviceMode
	latency time.Duration
	timeout time.Duration
	fault   FaultFunc
	sends   int
}

var _ command.DeviceLink = (*Simulated)(nil)

// NewSimulated returns a device sitting in initial.
func NewSimulated(initial entity.DeviceMode, latency, timeout time.Duration) *Simulated {
	return &Simulated{
		mode:    initial,
		latency: latency,
		timeout: timeout,
	}
}

// SetFault installs f; pass nil to clear it.
func (s *Simulated) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fault = f
}

// Mode returns the mode the simulated electronics are in.
func (s *Simulated) Mode() entity.DeviceMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// Sends returns how many commands reached the device.
func (s *Simulated) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sends
}

// Send waits out the settle latency, bounded by the link timeout, then applies target.
func (s *Simulated) Send(ctx context.Context, target entity.DeviceMode) (entity.DeviceMode, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return s.Mode(), fmt.Errorf("simulated device: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sends++

	if !target.IsValid() {
		return s.mode, fmt.Errorf("%w: unsupported mode %s", command.ErrLinkNACK, target)
	}

	if s.fault != nil {
		if err := s.fault(s.mode, target); err != nil {
			return s.mode, err
		}
	}

	s.mode = target

	return s.mode, nil
}
