package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	// TargetMode must name a DeviceMode exactly, e.g. "RUN".
	TargetMode string `json:"targetMode" binding:"required,devicemode" example:"RUN"`
	// IdempotencyToken lets a client retry a command without applying it twice.
	IdempotencyToken string `json:"idempotencyToken,omitempty" binding:"omitempty,max=128" example:"6a1f6c2e-0d5b-4c1e-9d7e-3f2b8c1a9e40"`
}

// ToEntity -.
func (r CommandRequest) ToEntity() entity.CommandRequest {
	return entity.CommandRequest{
		TargetMode:       r.TargetMode,
		IdempotencyToken: r.IdempotencyToken,
	}
}

// ValidateDeviceMode validates that a field names a known device mode.
func ValidateDeviceMode(fl validator.FieldLevel) bool {
	_, err := entity.ParseDeviceMode(fl.Field().String())

	return err == nil
}
