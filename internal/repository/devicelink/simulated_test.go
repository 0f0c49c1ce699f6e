package devicelink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
)

func TestSimulatedSend(t *testing.T) {
	t.Parallel()

	s := NewSimulated(entity.ModeStandby, time.Millisecond, time.Second)

	got, err := s.Send(context.Background(), entity.ModeRun)
	require.NoError(t, err)
	assert.Equal(t, entity.ModeRun, got)
	assert.Equal(t, entity.ModeRun, s.Mode())
	assert.Equal(t, 1, s.Sends())
}

func TestSimulatedFault(t *testing.T) {
	t.Parallel()

	s := NewSimulated(entity.ModeStandby, 0, time.Second)
	s.SetFault(func(current, target entity.DeviceMode) error {
		if current == entity.ModeStandby && target == entity.ModeFault {
			return command.ErrLinkNACK
		}

		return nil
	})

	got, err := s.Send(context.Background(), entity.ModeFault)
	require.ErrorIs(t, err, command.ErrLinkNACK)
	assert.Equal(t, entity.ModeStandby, got)
	assert.Equal(t, entity.ModeStandby, s.Mode())

	s.SetFault(nil)

	_, err = s.Send(context.Background(), entity.ModeFault)
	require.NoError(t, err)
}

func TestSimulatedTimeout(t *testing.T) {
	t.Parallel()

	s := NewSimulated(entity.ModeOff, time.Second, 10*time.Millisecond)

	got, err := s.Send(context.Background(), entity.ModeRun)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, entity.ModeOff, got)
	assert.Zero(t, s.Sends(), "a timed out command never reaches the electronics")

	de := command.NormalizeDeviceError(entity.ModeRun, err)
	assert.Equal(t, command.KindTimeout, de.Kind)
}

func TestSimulatedRejectsInvalidMode(t *testing.T) {
	t.Parallel()

	s := NewSimulated(entity.ModeOff, 0, time.Second)

	_, err := s.Send(context.Background(), entity.DeviceMode(42))
	require.ErrorIs(t, err, command.ErrLinkNACK)
	assert.Equal(t, entity.ModeOff, s.Mode())
}
