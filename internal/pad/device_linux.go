//go:build linux

package pad

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"syscall"

	evdev "github.com/holoplot/go-evdev"
)

func openDevice(index int, logger *slog.Logger) (Device, error) {
	paths, err := listGamepadPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	logger.Info("controller devices detected", "count", len(paths))
	if index < 0 || index >= len(paths) {
		return nil, fmt.Errorf("controller not found at index %d (count=%d)", index, len(paths))
	}
	return openGamepad(paths[index])
}

// Enumerate lists detected controllers with their capability counts.
func Enumerate() ([]DeviceInfo, error) {
	paths, err := listGamepadPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(paths))
	for i, p := range paths {
		dev, err := openGamepad(p)
		if err != nil {
			continue
		}
		out = append(out, DeviceInfo{
			Index:   i,
			Name:    dev.Name(),
			Path:    p.Path,
			Hats:    dev.NumHats(),
			Buttons: dev.NumButtons(),
			Axes:    dev.NumAxes(),
		})
		_ = dev.Close()
	}
	return out, nil
}

func listGamepadPaths() ([]evdev.InputPath, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})
	pads := make([]evdev.InputPath, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.OpenWithFlags(p.Path, os.O_RDONLY)
		if err != nil {
			continue
		}
		if isGamepad(dev) {
			pads = append(pads, p)
		}
		_ = dev.Close()
	}
	return pads, nil
}

func isGamepad(dev *evdev.InputDevice) bool {
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		if code >= evdev.BTN_JOYSTICK && code <= evdev.BTN_THUMBR {
			return true
		}
	}
	for _, code := range dev.CapableEvents(evdev.EV_ABS) {
		if code == evdev.ABS_HAT0X {
			return true
		}
	}
	return false
}

// evdevDevice indexes hats, buttons, and axes in ascending code order,
// the same order the common joystick layers assign their indexes.
type evdevDevice struct {
	dev         *evdev.InputDevice
	name        string
	hats        int
	axisCodes   []evdev.EvCode
	buttonCodes []evdev.EvCode
	absInfo     map[evdev.EvCode]evdev.AbsInfo
	absState    map[evdev.EvCode]int32
	pressed     map[evdev.EvCode]bool
}

func openGamepad(p evdev.InputPath) (Device, error) {
	dev, err := evdev.OpenWithFlags(p.Path, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	if err := dev.NonBlock(); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("failed to set nonblocking mode for %s: %w", p.Path, err)
	}
	name := p.Name
	if actual, err := dev.Name(); err == nil && actual != "" {
		name = actual
	}
	d := &evdevDevice{
		dev:      dev,
		name:     name,
		absInfo:  make(map[evdev.EvCode]evdev.AbsInfo),
		absState: make(map[evdev.EvCode]int32),
		pressed:  make(map[evdev.EvCode]bool),
	}
	if infos, err := dev.AbsInfos(); err == nil {
		for code, info := range infos {
			d.absInfo[code] = info
			d.absState[code] = info.Value
		}
	}

	absCodes := append([]evdev.EvCode(nil), dev.CapableEvents(evdev.EV_ABS)...)
	sort.Slice(absCodes, func(i, j int) bool { return absCodes[i] < absCodes[j] })
	hasAbs := make(map[evdev.EvCode]bool, len(absCodes))
	for _, code := range absCodes {
		hasAbs[code] = true
		if code >= evdev.ABS_HAT0X && code <= evdev.ABS_HAT3Y {
			continue
		}
		d.axisCodes = append(d.axisCodes, code)
	}
	for n := 0; n < 4; n++ {
		x := evdev.ABS_HAT0X + evdev.EvCode(2*n)
		y := evdev.ABS_HAT0Y + evdev.EvCode(2*n)
		if hasAbs[x] && hasAbs[y] {
			d.hats++
		}
	}

	keyCodes := append([]evdev.EvCode(nil), dev.CapableEvents(evdev.EV_KEY)...)
	sort.Slice(keyCodes, func(i, j int) bool { return keyCodes[i] < keyCodes[j] })
	for _, code := range keyCodes {
		if code >= evdev.BTN_JOYSTICK {
			d.buttonCodes = append(d.buttonCodes, code)
		}
	}
	return d, nil
}

func (d *evdevDevice) Name() string    { return d.name }
func (d *evdevDevice) NumHats() int    { return d.hats }
func (d *evdevDevice) NumButtons() int { return len(d.buttonCodes) }
func (d *evdevDevice) NumAxes() int    { return len(d.axisCodes) }

func (d *evdevDevice) Poll() error {
	for {
		events, err := d.dev.ReadSlice(32)
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				return nil
			}
			if errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV) {
				return fmt.Errorf("controller device lost: %w", err)
			}
			// Transient read failure, try again next tick.
			return nil
		}
		for _, ev := range events {
			switch ev.Type {
			case evdev.EV_ABS:
				d.absState[ev.Code] = ev.Value
			case evdev.EV_KEY:
				d.pressed[ev.Code] = ev.Value != 0
			}
		}
	}
}

func (d *evdevDevice) Hat(index int) (int, int, error) {
	if index < 0 || index >= d.hats {
		return 0, 0, fmt.Errorf("hat %d out of range", index)
	}
	xCode := evdev.ABS_HAT0X + evdev.EvCode(2*index)
	yCode := evdev.ABS_HAT0Y + evdev.EvCode(2*index)
	x := signOf(d.absState[xCode])
	// The kernel reports hat up as -1; flip so up is (0, 1).
	y := -signOf(d.absState[yCode])
	return x, y, nil
}

func (d *evdevDevice) Button(index int) (bool, error) {
	if index < 0 || index >= len(d.buttonCodes) {
		return false, fmt.Errorf("button %d out of range", index)
	}
	return d.pressed[d.buttonCodes[index]], nil
}

func (d *evdevDevice) Axis(index int) (float64, error) {
	if index < 0 || index >= len(d.axisCodes) {
		return 0, fmt.Errorf("axis %d out of range", index)
	}
	code := d.axisCodes[index]
	raw := d.absState[code]
	info, ok := d.absInfo[code]
	if !ok || info.Maximum <= info.Minimum {
		return float64(signOf(raw)), nil
	}
	span := float64(info.Maximum - info.Minimum)
	return 2*float64(raw-info.Minimum)/span - 1, nil
}

func (d *evdevDevice) Close() error {
	return d.dev.Close()
}

func signOf(v int32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
