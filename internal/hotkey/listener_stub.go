//go:build !linux && !windows

package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
)

func startListener(chan<- KeyEvent, *slog.Logger) (func(), error) {
	return nil, fmt.Errorf("global hotkeys are not supported on %s", runtime.GOOS)
}
