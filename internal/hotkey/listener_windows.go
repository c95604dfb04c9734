//go:build windows

package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	llkhfInjected        = 0x00000010
	llkhfLowerILInjected = 0x00000002
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")

	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procGetCurrentThreadID = kernel32.NewProc("GetCurrentThreadId")

	keyboardHookCallback = windows.NewCallback(keyboardLLCallback)

	activeListener atomic.Pointer[winListener]
)

type point struct {
	X int32
	Y int32
}

type keyboardLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

type winListener struct {
	events chan<- KeyEvent
	logger *slog.Logger

	threadID atomic.Uint32
	done     chan struct{}
}

// startListener installs a low-level keyboard hook on a dedicated message
// pump thread. The returned stop function posts WM_QUIT to that thread,
// waits for it to unhook, and closes events.
func startListener(events chan<- KeyEvent, logger *slog.Logger) (func(), error) {
	l := &winListener{events: events, logger: logger, done: make(chan struct{})}
	if !activeListener.CompareAndSwap(nil, l) {
		return nil, fmt.Errorf("keyboard hook is already installed")
	}

	ready := make(chan error, 1)
	go l.hookLoop(ready)
	if err := <-ready; err != nil {
		activeListener.CompareAndSwap(l, nil)
		return nil, err
	}

	stop := func() {
		if id := l.threadID.Load(); id != 0 {
			_, _, _ = procPostThreadMessageW.Call(uintptr(id), uintptr(wmQuit), 0, 0)
		}
		<-l.done
		activeListener.CompareAndSwap(l, nil)
		close(events)
	}
	return stop, nil
}

func (l *winListener) hookLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	threadID, _, _ := procGetCurrentThreadID.Call()
	l.threadID.Store(uint32(threadID))

	hook, _, hookErr := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), keyboardHookCallback, 0, 0)
	if hook == 0 {
		ready <- fmt.Errorf("failed to install keyboard hook: %w", hookErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(hook)
	}()

	ready <- nil

	var msg message
	for {
		ret, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			l.logger.Warn("keyboard hook message loop failed", "error", callErr)
			return
		case 0:
			return
		default:
			_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

func keyboardLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 {
		if l := activeListener.Load(); l != nil {
			l.handleKey(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func (l *winListener) handleKey(wParam, lParam uintptr) {
	if lParam == 0 {
		return
	}

	event := (*keyboardLLHookStruct)(unsafe.Pointer(lParam))
	if event.Flags&llkhfInjected != 0 || event.Flags&llkhfLowerILInjected != 0 {
		return
	}

	keyCode, ok := codeFromVK(event.VkCode, event.Flags)
	if !ok {
		return
	}

	var pressed bool
	switch uint32(wParam) {
	case wmKeyDown, wmSysKeyDown:
		pressed = true
	case wmKeyUp, wmSysKeyUp:
		pressed = false
	default:
		return
	}

	// Never block the hook thread; drop the event if the matcher lags.
	select {
	case l.events <- KeyEvent{Code: keyCode, Pressed: pressed}:
	default:
	}
}
