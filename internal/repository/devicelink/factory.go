package devicelink

import (
	"fmt"

	"github.com/device-management-toolkit/bmcserver/config"
	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

// New returns the DeviceLink selected by cfg.
func New(cfg config.Device, l logger.Interface) (command.DeviceLink, error) {
	switch cfg.Link {
	case config.LinkSimulated:
		initial, err := entity.ParseDeviceMode(cfg.InitialMode)
		if err != nil {
			return nil, err
		}

		l.Info("devicelink - simulated BMC, latency %s", cfg.SimulatedLatency)

		return NewSimulated(initial, cfg.SimulatedLatency, cfg.Timeout), nil
	case config.LinkHTTP:
		l.Info("devicelink - http BMC driver at %s", cfg.URL)

		return NewHTTP(cfg.URL, cfg.Timeout, cfg.RetryMax, l), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownLink, cfg.Link)
	}
}
