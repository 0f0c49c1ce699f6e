package command

import (
	"context"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// DeviceLink sends a mode command to the BMC. Implementations enforce their own
// deadline and return the mode the device confirms.
type DeviceLink interface {
	Send(ctx context.Context, target entity.DeviceMode) (entity.DeviceMode, error)
}

// Publisher is told about every state change.
type Publisher interface {
	Publish(snapshot entity.ServerState)
}

// Feature is the command surface the HTTP layer drives.
type Feature interface {
	Process(ctx context.Context, req entity.CommandRequest) entity.CommandResult
	Zero(ctx context.Context) entity.CommandResult
}
