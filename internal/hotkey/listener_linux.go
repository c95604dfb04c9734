//go:build linux

package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// startListener opens every readable key-capable input device and forwards
// key transitions to events. The returned stop function closes the devices,
// waits for the readers, and then closes events.
func startListener(events chan<- KeyEvent, logger *slog.Logger) (func(), error) {
	devices, err := openKeyDevices()
	if err != nil {
		return nil, err
	}
	logger.Info("keyboard devices opened", "count", len(devices))

	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev *evdev.InputDevice) {
			defer wg.Done()
			readKeyEvents(dev, stopCh, events, logger)
		}(dev)
	}

	stop := func() {
		close(stopCh)
		for _, dev := range devices {
			_ = dev.Close()
		}
		wg.Wait()
		close(events)
	}
	return stop, nil
}

func openKeyDevices() ([]*evdev.InputDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(paths))
	denied := false
	for _, path := range paths {
		dev, err := evdev.OpenWithFlags(path.Path, os.O_RDONLY)
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				denied = true
			}
			continue
		}

		name := path.Name
		if actualName, nameErr := dev.Name(); nameErr == nil && actualName != "" {
			name = actualName
		}
		if deviceIsVirtual(dev, name) || len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		if denied {
			return nil, fmt.Errorf("input devices not readable: permission denied (add your user to the input group)")
		}
		return nil, fmt.Errorf("no readable input devices with key events found")
	}
	return devices, nil
}

// deviceIsVirtual filters out uinput and other synthetic devices so the
// listener never reacts to events this process or a macro tool injected.
func deviceIsVirtual(dev *evdev.InputDevice, name string) bool {
	id, err := dev.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "virtual") || strings.Contains(lower, "uinput")
}

func readKeyEvents(dev *evdev.InputDevice, stopCh <-chan struct{}, events chan<- KeyEvent, logger *slog.Logger) {
	path := dev.Path()
	for {
		batch, err := dev.ReadSlice(64)
		if err != nil {
			if listenerStopped(stopCh) || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !sleepWithStop(stopCh, 10*time.Millisecond) {
					return
				}
				continue
			}
			logger.Warn("keyboard read failed", "path", path, "error", err)
			if !sleepWithStop(stopCh, 100*time.Millisecond) {
				return
			}
			continue
		}

		for _, ev := range batch {
			if ev.Type != evdev.EV_KEY {
				continue
			}
			// Value 2 is auto-repeat; the matcher only wants edges.
			if ev.Value != 0 && ev.Value != 1 {
				continue
			}
			select {
			case events <- KeyEvent{Code: uint16(ev.Code), Pressed: ev.Value == 1}:
			case <-stopCh:
				return
			}
		}
	}
}

func listenerStopped(stopCh <-chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

func sleepWithStop(stopCh <-chan struct{}, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
