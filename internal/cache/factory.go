package cache

import (
	"github.com/device-management-toolkit/bmcserver/config"
)

// NewFromConfig creates the idempotency cache from the application configuration.
// A zero TTL in config disables token replay.
func NewFromConfig(cfg *config.Config) *Cache {
	return New(cfg.Idempotency.TTL)
}
