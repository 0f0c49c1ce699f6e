package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v2"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// Device link kinds.
const (
	LinkSimulated = "simulated"
	LinkHTTP      = "http"
)

var (
	ErrUnknownLink    = errors.New("unknown device link")
	ErrMissingLinkURL = errors.New("device url is required for the http link")
	ErrInvalidTimeout = errors.New("device timeout must be positive")
	ErrIncompleteAuth = errors.New("auth requires username, password and jwt key, or an oidc issuer and client id")
)

type (
	// Config -.
	Config struct {
		App         `yaml:"app"`
		HTTP        `yaml:"http"`
		Log         `yaml:"logger"`
		Device      `yaml:"device"`
		Auth        `yaml:"auth"`
		Idempotency `yaml:"idempotency"`
		Tracing     `yaml:"tracing"`
	}

	// App -.
	App struct {
		Name    string `env-required:"true" yaml:"name" env:"APP_NAME"`
		Repo    string `env-required:"true" yaml:"repo" env:"APP_REPO"`
		Version string `env-required:"true"`
	}

	// HTTP -.
	HTTP struct {
		Host           string   `env-required:"true" yaml:"host" env:"HTTP_HOST"`
		Port           string   `env-required:"true" yaml:"port" env:"HTTP_PORT"`
		AllowedOrigins []string `env-required:"true" yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS"`
		AllowedHeaders []string `env-required:"true" yaml:"allowed_headers" env:"HTTP_ALLOWED_HEADERS"`
		WSCompression  bool     `yaml:"ws_compression" env:"WS_COMPRESSION"`
		TLS            TLS      `yaml:"tls"`
	}

	// TLS -.
	TLS struct {
		Enabled  bool   `yaml:"enabled" env:"HTTP_TLS_ENABLED"`
		CertFile string `yaml:"certFile" env:"HTTP_TLS_CERT_FILE"`
		KeyFile  string `yaml:"keyFile" env:"HTTP_TLS_KEY_FILE"`
	}

	// Log -.
	Log struct {
		Level string `env-required:"true" yaml:"log_level" env:"LOG_LEVEL"`
		// File enables a size-rotated log file next to stdout when set.
		File       string `yaml:"file" env:"LOG_FILE"`
		MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
		MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
		MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
	}

	// Device describes how the server reaches the BMC.
	Device struct {
		Link             string        `yaml:"link" env:"DEVICE_LINK"`
		URL              string        `yaml:"url" env:"DEVICE_URL"`
		InitialMode      string        `yaml:"initial_mode" env:"DEVICE_INITIAL_MODE"`
		SafeMode         string        `yaml:"safe_mode" env:"DEVICE_SAFE_MODE"`
		Timeout          time.Duration `yaml:"timeout" env:"DEVICE_TIMEOUT"`
		RetryMax         int           `yaml:"retry_max" env:"DEVICE_RETRY_MAX"`
		SimulatedLatency time.Duration `yaml:"simulated_latency" env:"DEVICE_SIMULATED_LATENCY"`
	}

	// Auth guards the mutating routes. Clients send a bearer token from /authorize or basic credentials.
	Auth struct {
		Disabled      bool          `yaml:"disabled" env:"AUTH_DISABLED"`
		Username      string        `yaml:"username" env:"AUTH_USERNAME"`
		Password      string        `yaml:"password" env:"AUTH_PASSWORD"`
		JWTKey        string        `yaml:"jwtKey" env:"AUTH_JWT_KEY"`
		JWTExpiration time.Duration `yaml:"jwtExpiration" env:"AUTH_JWT_EXPIRATION"`
		// Issuer and ClientID switch bearer tokens to an external OIDC provider.
		Issuer   string `yaml:"issuer" env:"AUTH_ISSUER"`
		ClientID string `yaml:"clientId" env:"AUTH_CLIENT_ID"`
	}

	// Idempotency -.
	Idempotency struct {
		TTL time.Duration `yaml:"ttl" env:"IDEMPOTENCY_TTL"`
	}

	// Tracing exports spans over OTLP/HTTP when Endpoint is set.
	Tracing struct {
		Endpoint string `yaml:"endpoint" env:"TRACING_ENDPOINT"`
	}
)

// defaultConfig constructs the in-memory default configuration.
func defaultConfig() *Config {
	return &Config{
		App: App{
			Name:    "bmcserver",
			Repo:    "device-management-toolkit/bmcserver",
			Version: "DEVELOPMENT",
		},
		HTTP: HTTP{
			Host:           "localhost",
			Port:           "8000",
			AllowedOrigins: []string{"*"},
			AllowedHeaders: []string{"*"},
			WSCompression:  true,
			TLS: TLS{
				Enabled: false,
			},
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Device: Device{
			Link:             LinkSimulated,
			URL:              "",
			InitialMode:      entity.ModeStandby.String(),
			SafeMode:         entity.ModeOff.String(),
			Timeout:          5 * time.Second,
			RetryMax:         0,
			SimulatedLatency: 50 * time.Millisecond,
		},
		Auth: Auth{
			Disabled:      true,
			Username:      "admin",
			Password:      "",
			JWTKey:        "",
			JWTExpiration: 24 * time.Hour,
		},
		Idempotency: Idempotency{
			TTL: 10 * time.Minute,
		},
	}
}

// Validate checks the values cleanenv cannot.
func (c *Config) Validate() error {
	if _, err := entity.ParseDeviceMode(c.Device.InitialMode); err != nil {
		return fmt.Errorf("device.initial_mode: %w", err)
	}

	if _, err := entity.ParseDeviceMode(c.Device.SafeMode); err != nil {
		return fmt.Errorf("device.safe_mode: %w", err)
	}

	if c.Device.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if !c.Auth.Disabled && !c.Auth.usesOIDC() && (c.Auth.Username == "" || c.Auth.Password == "" || c.Auth.JWTKey == "") {
		return ErrIncompleteAuth
	}

	switch c.Device.Link {
	case LinkSimulated:
	case LinkHTTP:
		if c.Device.URL == "" {
			return ErrMissingLinkURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLink, c.Device.Link)
	}

	return nil
}

func (a Auth) usesOIDC() bool {
	return a.Issuer != "" && a.ClientID != ""
}

// resolveConfigPath determines the effective config file path based on a flag value or default location.
func resolveConfigPath(configPathFlag string) (string, error) {
	if configPathFlag != "" {
		return configPathFlag, nil
	}

	ex, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(ex), "config", "config.yml"), nil
}

// readOrInitConfig reads the config file, writing cfg out as the file when none exists yet.
func readOrInitConfig(configPath string, cfg *Config) error {
	err := cleanenv.ReadConfig(configPath, cfg)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return err
	}

	if mkErr := os.MkdirAll(filepath.Dir(configPath), os.ModePerm); mkErr != nil {
		return mkErr
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	defer encoder.Close()

	return encoder.Encode(cfg)
}

// NewConfig returns app config: defaults, then the YAML file, then environment overrides.
func NewConfig() (*Config, error) {
	cfg := defaultConfig()

	var configPathFlag string
	if flag.Lookup("config") == nil {
		flag.StringVar(&configPathFlag, "config", "", "path to config file")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	configPath, err := resolveConfigPath(configPathFlag)
	if err != nil {
		return nil, err
	}

	return load(configPath, cfg)
}

// Load reads configPath over the defaults and applies environment overrides.
func Load(configPath string) (*Config, error) {
	return load(configPath, defaultConfig())
}

func load(configPath string, cfg *Config) (*Config, error) {
	if err := readOrInitConfig(configPath, cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
