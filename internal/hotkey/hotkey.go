// Package hotkey listens for system-wide key presses and emits timer actions.
package hotkey

import (
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/runtally/internal/combo"
	"github.com/verte-zerg/runtally/internal/debounce"
	"github.com/verte-zerg/runtally/internal/model"
)

// DefaultRepeatGuard is the minimum spacing between fires of the same
// action, so key-repeat storms cannot double-trigger the timer.
const DefaultRepeatGuard = 700 * time.Millisecond

// KeyEvent is one raw key transition delivered by a platform listener.
// Auto-repeat never appears here, only real press and release edges.
type KeyEvent struct {
	Code    uint16
	Pressed bool
}

type binding struct {
	action model.Action
	combo  combo.Combo
}

// Source matches global key presses against the configured combos. A
// combo fires when its key goes down while at least its modifiers are
// held; the key must be released before it can fire again.
type Source struct {
	emit   func(model.Action)
	logger *slog.Logger

	mu       sync.Mutex
	bindings []binding
	enabled  bool
	running  bool
	stopFn   func()
	done     chan struct{}
	avail    bool
	reason   string

	// Matcher state, touched only by the run goroutine.
	held  combo.Modifier
	fired map[string]struct{}
	guard *debounce.Guard
}

// New builds a hotkey source. Nothing listens until Start.
func New(bindings []model.Binding, enabled bool, emit func(model.Action), logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hotkey")
	return &Source{
		emit:     emit,
		logger:   logger,
		bindings: parseBindings(bindings, logger),
		enabled:  enabled,
		fired:    make(map[string]struct{}),
		guard:    debounce.New(DefaultRepeatGuard),
	}
}

func parseBindings(bindings []model.Binding, logger *slog.Logger) []binding {
	parsed := make([]binding, 0, len(bindings))
	for _, b := range bindings {
		if b.Combo == "" {
			continue
		}
		c, err := combo.Parse(b.Combo)
		if err != nil {
			logger.Warn("invalid key binding, leaving action unbound",
				"action", string(b.Action), "combo", b.Combo, "error", err)
			continue
		}
		parsed = append(parsed, binding{action: b.Action, combo: c})
	}
	return parsed
}

// Start installs the platform listener and launches the matcher. When
// hotkeys are disabled or the platform offers no listener, the source
// records a reason and starts nothing.
func (s *Source) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if !s.enabled {
		s.avail = false
		s.reason = "keyboard hotkeys disabled in settings"
		s.logger.Info("global hotkeys disabled")
		return
	}

	events := make(chan KeyEvent, 64)
	stopFn, err := startListener(events, s.logger)
	if err != nil {
		s.avail = false
		s.reason = err.Error()
		s.logger.Warn("global hotkeys unavailable", "reason", s.reason)
		return
	}

	s.held = 0
	clear(s.fired)
	s.guard.Reset()
	s.stopFn = stopFn
	s.done = make(chan struct{})
	s.running = true
	s.avail = true
	s.reason = ""
	s.logger.Info("global hotkeys listening", "bindings", len(s.bindings))
	go s.run(events, s.done)
}

// Stop tears down the listener and waits for the matcher, each wait
// bounded to one second. Stopping a stopped source is a no-op.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopFn := s.stopFn
	s.stopFn = nil
	done := s.done
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		stopFn()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.logger.Warn("hotkey listener did not stop in time")
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		s.logger.Warn("hotkey matcher did not stop in time")
	}
}

// Reload swaps the active bindings without restarting the listener.
func (s *Source) Reload(bindings []model.Binding) {
	parsed := parseBindings(bindings, s.logger)
	s.mu.Lock()
	s.bindings = parsed
	s.mu.Unlock()
	s.logger.Info("hotkey bindings reloaded", "count", len(parsed))
}

// Available reports whether the listener is installed and matching.
func (s *Source) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avail
}

// Reason explains why the source is unavailable, or "" when it is
// running or was never started.
func (s *Source) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Source) run(events <-chan KeyEvent, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.avail = false
		s.mu.Unlock()
	}()
	for ev := range events {
		s.handleEvent(ev)
	}
}

// handleEvent folds one key transition into the matcher state. Releasing
// a key rearms it; releasing the last modifier rearms everything, so a
// chord held across several presses cannot fire twice.
func (s *Source) handleEvent(ev KeyEvent) {
	if mod := modifierForCode(ev.Code); mod != 0 {
		if ev.Pressed {
			s.held = s.held.With(mod)
			return
		}
		s.held = s.held.Without(mod)
		if s.held == 0 {
			clear(s.fired)
		}
		return
	}

	token, ok := tokenForCode(ev.Code)
	if !ok {
		s.logger.Debug("unmapped key code", "code", ev.Code, "pressed", ev.Pressed)
		return
	}
	if !ev.Pressed {
		delete(s.fired, token)
		return
	}

	s.logger.Debug("key press", "key", token, "mods", s.held.String())
	if _, seen := s.fired[token]; seen {
		return
	}

	s.mu.Lock()
	bindings := s.bindings
	s.mu.Unlock()
	for _, b := range bindings {
		if !b.combo.Matches(s.held, token) {
			continue
		}
		s.fired[token] = struct{}{}
		if s.guard.ShouldThrottle(string(b.action)) {
			s.logger.Info("hotkey throttled", "key", token, "action", string(b.action))
			return
		}
		s.logger.Info("hotkey action", "key", token, "mods", s.held.String(), "action", string(b.action))
		s.emit(b.action)
		return
	}
}
