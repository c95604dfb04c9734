package pad

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/verte-zerg/runtally/internal/config"
	"github.com/verte-zerg/runtally/internal/debounce"
	"github.com/verte-zerg/runtally/internal/model"
)

const pollInterval = 10 * time.Millisecond

// Source watches one controller's D-pad and emits the mapped timer action
// on every press edge. It runs on its own goroutine; a controller that is
// missing or loses its D-pad makes the source unavailable with a reason,
// never an error for the caller.
type Source struct {
	emit   func(model.Action)
	logger *slog.Logger

	mu      sync.Mutex
	ctrl    config.ControllerSettings
	dpad    config.DpadMap
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	avail   bool
	reason  string
}

// New builds a controller source. Nothing is opened until Start.
func New(ctrl config.ControllerSettings, dpad config.DpadMap, emit func(model.Action), logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controller")
	return &Source{emit: emit, logger: logger, ctrl: ctrl, dpad: dpad}
}

// Start launches the poll loop. A disabled controller records a reason and
// starts nothing.
func (s *Source) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if !s.ctrl.Enabled {
		s.avail = false
		s.reason = "controller disabled in settings"
		s.logger.Info("controller disabled")
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.run(s.ctrl, s.dpad, s.stopCh, s.done)
}

// Stop signals the poll loop and waits for it, bounded to one second.
// Stopping a stopped source is a no-op.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.logger.Warn("controller loop did not stop in time")
	}
}

// Reload stops the loop, swaps the configuration, and starts again.
func (s *Source) Reload(ctrl config.ControllerSettings, dpad config.DpadMap) {
	s.logger.Info("controller reload requested")
	s.Stop()
	s.mu.Lock()
	s.ctrl = ctrl
	s.dpad = dpad
	s.reason = ""
	s.mu.Unlock()
	s.Start()
}

// Available reports whether the loop is connected to a usable D-pad.
func (s *Source) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avail
}

// Reason explains why the source is unavailable, or "" when it is running
// or was never started.
func (s *Source) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Source) setAvailable() {
	s.mu.Lock()
	s.avail = true
	s.reason = ""
	s.mu.Unlock()
}

func (s *Source) fail(reason string) {
	s.mu.Lock()
	s.avail = false
	s.reason = reason
	s.mu.Unlock()
	s.logger.Warn("controller unavailable", "reason", reason)
}

func (s *Source) run(ctrl config.ControllerSettings, dpad config.DpadMap, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.avail = false
		s.mu.Unlock()
	}()

	dev, err := openDevice(ctrl.DeviceIndex, s.logger)
	xi := initXInput(ctrl.DeviceIndex, s.logger)
	if err != nil {
		if xi == nil {
			s.fail(err.Error())
			return
		}
		s.logger.Info("joystick device unavailable, using xinput only", "reason", err.Error())
		dev = nil
	}
	if dev != nil {
		defer dev.Close()
		s.logger.Info("controller connected",
			"name", dev.Name(),
			"index", ctrl.DeviceIndex,
			"hats", dev.NumHats(),
			"buttons", dev.NumButtons(),
			"axes", dev.NumAxes())
	}

	p := newPoller(dev, xi, ctrl.HatIndex, s.logger)
	if !p.hasSource() {
		if dev != nil {
			s.fail(fmt.Sprintf("controller dpad not available (hats=%d, buttons=%d, axes=%d)",
				dev.NumHats(), dev.NumButtons(), dev.NumAxes()))
		} else {
			s.fail("no controller input backend available")
		}
		return
	}
	s.logger.Info("controller dpad sources",
		"hat", p.hasHat,
		"hat_index", ctrl.HatIndex,
		"buttons", p.buttonMap != nil,
		"axes", p.hasAxes,
		"xinput", p.xi != nil)

	guard := debounce.New(time.Duration(ctrl.RepeatGuardMs) * time.Millisecond)
	s.setAvailable()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
		dir, err := p.tick()
		if err != nil {
			s.fail("controller polling failed: " + err.Error())
			return
		}
		if dir != model.DirNone {
			s.handleDirection(dir, dpad, guard)
		}
	}
}

// handleDirection resolves one press edge to an action and emits it.
// Directions mapped to "none" are dropped before the repeat guard, so an
// unbound direction never refreshes the guard window.
func (s *Source) handleDirection(dir model.Direction, dpad config.DpadMap, guard *debounce.Guard) {
	action := dpad.ActionFor(dir)
	if action == model.ActionNone {
		s.logger.Info("controller direction ignored", "direction", dir)
		return
	}
	if guard.ShouldThrottle(string(dir)) {
		s.logger.Info("controller direction throttled", "direction", dir, "action", action)
		return
	}
	s.logger.Info("controller action", "direction", dir, "action", action)
	s.emit(action)
}

// poller fuses the detected D-pad sources into one direction per tick.
// Sources are consulted in a fixed priority order and only the first one
// to yield a direction advances its edge state that tick.
type poller struct {
	dev       Device
	xi        xinputReader
	hatIndex  int
	hasHat    bool
	axisX     int
	axisY     int
	hasAxes   bool
	buttonMap map[int]model.Direction
	logger    *slog.Logger

	hatSeen     bool
	prevHatX    int
	prevHatY    int
	prevAxes    model.Direction
	prevButtons map[int]bool
	xiSeen      bool
	prevXI      uint16
}

func newPoller(dev Device, xi xinputReader, hatIndex int, logger *slog.Logger) *poller {
	p := &poller{
		dev:         dev,
		xi:          xi,
		hatIndex:    hatIndex,
		logger:      logger,
		prevAxes:    model.DirNone,
		prevButtons: make(map[int]bool),
	}
	if dev != nil {
		p.hasHat = dev.NumHats() > hatIndex
		p.buttonMap = guessButtonMap(dev.NumButtons())
		p.axisX, p.axisY, p.hasAxes = guessAxisPair(dev.NumAxes())
	}
	return p
}

func (p *poller) hasSource() bool {
	return p.xi != nil || p.hasHat || p.hasAxes || p.buttonMap != nil
}

func (p *poller) tick() (model.Direction, error) {
	if p.dev != nil {
		if err := p.dev.Poll(); err != nil {
			return model.DirNone, fmt.Errorf("failed to poll controller: %w", err)
		}
	}
	if p.xi != nil {
		if dir := p.pollXInput(); dir != model.DirNone {
			return dir, nil
		}
	}
	if p.hasHat {
		dir, err := p.pollHat()
		if err != nil {
			return model.DirNone, err
		}
		if dir != model.DirNone {
			return dir, nil
		}
	}
	if p.hasAxes {
		if dir := p.pollAxes(); dir != model.DirNone {
			return dir, nil
		}
	}
	if p.buttonMap != nil {
		return p.pollButtons(), nil
	}
	return model.DirNone, nil
}

func (p *poller) pollXInput() model.Direction {
	buttons, ok := p.xi.poll()
	if !ok {
		return model.DirNone
	}
	var prev uint16
	if p.xiSeen {
		prev = p.prevXI
	}
	if !p.xiSeen || buttons != p.prevXI {
		p.logger.Debug("xinput buttons", "buttons", fmt.Sprintf("0x%04x", buttons))
	}
	p.xiSeen = true
	p.prevXI = buttons
	return xinputDirection(buttons &^ prev)
}

func (p *poller) pollHat() (model.Direction, error) {
	x, y, err := p.dev.Hat(p.hatIndex)
	if err != nil {
		return model.DirNone, fmt.Errorf("failed to read hat %d: %w", p.hatIndex, err)
	}
	if p.hatSeen && x == p.prevHatX && y == p.prevHatY {
		return model.DirNone, nil
	}
	p.hatSeen = true
	p.prevHatX, p.prevHatY = x, y
	p.logger.Debug("hat motion", "hat", p.hatIndex, "x", x, "y", y)
	return directionFromHat(x, y), nil
}

func (p *poller) pollAxes() model.Direction {
	x, errX := p.dev.Axis(p.axisX)
	y, errY := p.dev.Axis(p.axisY)
	if errX != nil || errY != nil {
		return model.DirNone
	}
	dir := directionFromAxes(x, y)
	if dir == p.prevAxes {
		return model.DirNone
	}
	p.logger.Debug("axis dpad", "x_axis", p.axisX, "y_axis", p.axisY, "direction", dir)
	p.prevAxes = dir
	return dir
}

func (p *poller) pollButtons() model.Direction {
	pressedNow := make(map[int]bool, len(p.buttonMap))
	for idx := range p.buttonMap {
		down, err := p.dev.Button(idx)
		if err != nil {
			continue
		}
		if down {
			pressedNow[idx] = true
		}
	}
	newly := make([]int, 0, len(pressedNow))
	for idx := range pressedNow {
		if !p.prevButtons[idx] {
			newly = append(newly, idx)
		}
	}
	sort.Ints(newly)
	if len(newly) > 0 {
		p.logger.Debug("button dpad", "pressed", newly)
	}
	p.prevButtons = pressedNow
	return buttonDirection(newly, p.buttonMap)
}
