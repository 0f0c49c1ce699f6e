package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

func clearEnv() {
	for _, k := range []string{
		"APP_NAME", "HTTP_PORT", "LOG_LEVEL", "HTTP_TLS_ENABLED",
		"DEVICE_LINK", "DEVICE_URL", "DEVICE_INITIAL_MODE", "DEVICE_SAFE_MODE", "DEVICE_TIMEOUT",
		"AUTH_DISABLED", "IDEMPOTENCY_TTL",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_WritesDefaults(t *testing.T) { //nolint:paralleltest // cannot have simultaneous tests modifying environment variables
	clearEnv()

	path := filepath.Join(t.TempDir(), "config", "config.yml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bmcserver", cfg.Name)
	assert.Equal(t, "DEVELOPMENT", cfg.Version)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.TLS.Enabled)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, LinkSimulated, cfg.Device.Link)
	assert.Equal(t, "STANDBY", cfg.Device.InitialMode)
	assert.Equal(t, "OFF", cfg.Device.SafeMode)
	assert.Equal(t, 5*time.Second, cfg.Device.Timeout)
	assert.True(t, cfg.Auth.Disabled)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.TTL)

	_, err = os.Stat(path)
	require.NoError(t, err, "missing config file is written out")
}

func TestLoad_EnvOverridesFile(t *testing.T) { //nolint:paralleltest // cannot have simultaneous tests modifying environment variables
	clearEnv()

	configYAML := `
app:
  name: fileApp
http:
  port: "8080"
logger:
  log_level: warn
device:
  link: http
  url: http://bmc.local:9000
  initial_mode: RUN
  timeout: 2s
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEVICE_INITIAL_MODE", "FAULT")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fileApp", cfg.Name)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, LinkHTTP, cfg.Device.Link)
	assert.Equal(t, "http://bmc.local:9000", cfg.Device.URL)
	assert.Equal(t, "FAULT", cfg.Device.InitialMode)
	assert.Equal(t, 2*time.Second, cfg.Device.Timeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(_ *Config) {}},
		{name: "unknown initial mode", mutate: func(c *Config) { c.Device.InitialMode = "BOGUS" }, wantErr: entity.ErrInvalidMode},
		{name: "unknown safe mode", mutate: func(c *Config) { c.Device.SafeMode = "off" }, wantErr: entity.ErrInvalidMode},
		{name: "zero timeout", mutate: func(c *Config) { c.Device.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "http link without url", mutate: func(c *Config) { c.Device.Link = LinkHTTP }, wantErr: ErrMissingLinkURL},
		{name: "unknown link", mutate: func(c *Config) { c.Device.Link = "serial" }, wantErr: ErrUnknownLink},
		{name: "auth without secrets", mutate: func(c *Config) { c.Auth.Disabled = false }, wantErr: ErrIncompleteAuth},
		{
			name:   "auth with oidc",
			mutate: func(c *Config) { c.Auth = Auth{Issuer: "https://login.example.com", ClientID: "bmcserver"} },
		},
		{
			name: "auth complete",
			mutate: func(c *Config) {
				c.Auth = Auth{Username: "admin", Password: "P@ssw0rd", JWTKey: "k", JWTExpiration: time.Hour}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
