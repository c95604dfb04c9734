//go:build windows

package pad

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/windows"
)

// xinputDLLNames in preference order, newest first.
var xinputDLLNames = []string{"xinput1_4.dll", "xinput1_3.dll", "xinput9_1_0.dll"}

type xinputGamepad struct {
	Buttons      uint16
	LeftTrigger  byte
	RightTrigger byte
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

type xinputState struct {
	PacketNumber uint32
	Gamepad      xinputGamepad
}

type xinputDevice struct {
	getState  *windows.LazyProc
	userIndex int
}

// initXInput probes the XInput DLLs for a connected pad at userIndex.
// XInput addresses at most four pads.
func initXInput(userIndex int, logger *slog.Logger) xinputReader {
	if userIndex < 0 || userIndex > 3 {
		return nil
	}
	for _, name := range xinputDLLNames {
		dll := windows.NewLazySystemDLL(name)
		proc := dll.NewProc("XInputGetState")
		if err := proc.Find(); err != nil {
			continue
		}
		var state xinputState
		rc, _, _ := proc.Call(uintptr(userIndex), uintptr(unsafe.Pointer(&state)))
		if rc != 0 {
			continue
		}
		logger.Info("xinput enabled", "user_index", userIndex, "dll", name)
		return &xinputDevice{getState: proc, userIndex: userIndex}
	}
	return nil
}

func (x *xinputDevice) poll() (uint16, bool) {
	var state xinputState
	rc, _, _ := x.getState.Call(uintptr(x.userIndex), uintptr(unsafe.Pointer(&state)))
	if rc != 0 {
		return 0, false
	}
	return state.Gamepad.Buttons, true
}

// XInputConnected reports the XInput user indexes with a connected pad.
func XInputConnected() []int {
	var connected []int
	for _, name := range xinputDLLNames {
		dll := windows.NewLazySystemDLL(name)
		proc := dll.NewProc("XInputGetState")
		if err := proc.Find(); err != nil {
			continue
		}
		for idx := 0; idx < 4; idx++ {
			var state xinputState
			rc, _, _ := proc.Call(uintptr(idx), uintptr(unsafe.Pointer(&state)))
			if rc == 0 {
				connected = append(connected, idx)
			}
		}
		break
	}
	return connected
}
