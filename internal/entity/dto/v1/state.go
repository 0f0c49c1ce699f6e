package dto

import (
	"time"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

type ModeResponse struct {
	Mode entity.DeviceMode `json:"mode" example:"STANDBY"`
}

// StateResponse is the full server state as served by GET /state and the state feed.
type StateResponse struct {
	Mode        entity.DeviceMode `json:"mode" example:"RUN"`
	LastUpdated time.Time         `json:"lastUpdated" example:"2024-01-01T00:00:00Z"`
	InFlight    bool              `json:"inFlight" example:"false"`
	Revision    uint64            `json:"revision" example:"3"`
}

func NewStateResponse(s entity.ServerState) StateResponse {
	return StateResponse{
		Mode:        s.CurrentMode,
		LastUpdated: s.LastUpdated,
		InFlight:    s.InFlight,
		Revision:    s.Revision,
	}
}

// RouteInfo is one entry of GET /routes.
type RouteInfo struct {
	Method string `json:"method" example:"POST"`
	Path   string `json:"path" example:"/command"`
}
