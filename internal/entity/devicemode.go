// Package entity holds the device-mode domain types shared by every layer.
package entity

import (
	"errors"
	"fmt"
)

// DeviceMode is the operational state of the BMC. The set is closed: only the
// constants below are valid, in declaration order.
type DeviceMode int

const (
	ModeOff DeviceMode = iota
	ModeStandby
	ModeRun
	ModeFault
)

var modeNames = [...]string{
	ModeOff:     "OFF",
	ModeStandby: "STANDBY",
	ModeRun:     "RUN",
	ModeFault:   "FAULT",
}

// ErrInvalidMode is returned when a name or value is outside the DeviceMode set.
var ErrInvalidMode = errors.New("invalid mode")

// DeviceModes returns every valid mode in declaration order.
func DeviceModes() []DeviceMode {
	modes := make([]DeviceMode, len(modeNames))
	for i := range modeNames {
		modes[i] = DeviceMode(i)
	}

	return modes
}

// IsValid reports whether m is a member of the DeviceMode set.
func (m DeviceMode) IsValid() bool {
	return m >= ModeOff && int(m) < len(modeNames)
}

func (m DeviceMode) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("DeviceMode(%d)", int(m))
	}

	return modeNames[m]
}

// ParseDeviceMode maps a mode name to its DeviceMode. Names are matched exactly.
func ParseDeviceMode(name string) (DeviceMode, error) {
	for i, n := range modeNames {
		if n == name {
			return DeviceMode(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m DeviceMode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}

	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DeviceMode) UnmarshalText(text []byte) error {
	parsed, err := ParseDeviceMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
