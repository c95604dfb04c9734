//go:build !windows

package pad

import "log/slog"

func initXInput(userIndex int, logger *slog.Logger) xinputReader {
	return nil
}

// XInputConnected reports the XInput user indexes with a connected pad.
func XInputConnected() []int {
	return nil
}
