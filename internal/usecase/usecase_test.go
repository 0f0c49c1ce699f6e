package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-management-toolkit/bmcserver/config"
	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/repository/devicelink"
	"github.com/device-management-toolkit/bmcserver/internal/usecase"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Device: config.Device{
			Link:        config.LinkSimulated,
			InitialMode: "STANDBY",
			SafeMode:    "OFF",
			Timeout:     time.Second,
		},
		Idempotency: config.Idempotency{TTL: time.Minute},
	}
}

func TestNewUseCases(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	link := devicelink.NewSimulated(entity.ModeStandby, 0, time.Second)

	u, err := usecase.NewUseCases(cfg, link, logger.New("error"))
	require.NoError(t, err)

	assert.Equal(t, entity.ModeStandby, u.State.Snapshot().CurrentMode)

	updates, cancel := u.Watch.Subscribe()
	defer cancel()

	res := u.Commands.Process(context.Background(), entity.CommandRequest{TargetMode: "RUN"})
	require.Equal(t, entity.OutcomeApplied, res.Outcome)
	assert.Equal(t, entity.ModeRun, u.State.Snapshot().CurrentMode)

	select {
	case s := <-updates:
		assert.Equal(t, entity.ModeRun, s.CurrentMode)
	case <-time.After(time.Second):
		t.Fatal("no state update published")
	}

	res = u.Commands.Zero(context.Background())
	require.Equal(t, entity.OutcomeApplied, res.Outcome)
	assert.Equal(t, entity.ModeOff, res.Mode)
}

func TestNewUseCasesBadModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "initial", mutate: func(c *config.Config) { c.Device.InitialMode = "idle" }},
		{name: "safe", mutate: func(c *config.Config) { c.Device.SafeMode = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tc.mutate(cfg)

			_, err := usecase.NewUseCases(cfg, devicelink.NewSimulated(entity.ModeOff, 0, time.Second), logger.New("error"))
			require.ErrorIs(t, err, entity.ErrInvalidMode)
		})
	}
}
