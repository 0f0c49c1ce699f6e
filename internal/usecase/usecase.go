package usecase

import (
	"fmt"

	"github.com/device-management-toolkit/bmcserver/config"
	"github.com/device-management-toolkit/bmcserver/internal/cache"
	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/state"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/watch"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

// Usecases -.
type Usecases struct {
	Commands command.Feature
	State    state.Reader
	Watch    *watch.Hub
}

// NewUseCases builds the state store and command processor around link.
func NewUseCases(cfg *config.Config, link command.DeviceLink, log logger.Interface) (*Usecases, error) {
	initial, err := entity.ParseDeviceMode(cfg.Device.InitialMode)
	if err != nil {
		return nil, fmt.Errorf("usecase - NewUseCases - initial mode: %w", err)
	}

	safe, err := entity.ParseDeviceMode(cfg.Device.SafeMode)
	if err != nil {
		return nil, fmt.Errorf("usecase - NewUseCases - safe mode: %w", err)
	}

	store := state.New(initial)
	hub := watch.NewHub()

	processor := command.New(store, link, log,
		command.WithReplayCache(cache.NewFromConfig(cfg)),
		command.WithPublisher(hub),
		command.WithSafeMode(safe),
	)

	return &Usecases{
		Commands: processor,
		State:    store,
		Watch:    hub,
	}, nil
}
