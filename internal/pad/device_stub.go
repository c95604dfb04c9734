//go:build !linux

package pad

import (
	"fmt"
	"log/slog"
)

func openDevice(index int, logger *slog.Logger) (Device, error) {
	return nil, fmt.Errorf("joystick device polling is not supported on this platform")
}

// Enumerate lists detected controllers with their capability counts.
func Enumerate() ([]DeviceInfo, error) {
	return nil, nil
}
