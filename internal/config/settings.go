// Package config loads and stores the runtally settings document.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/runtally/internal/combo"
	"github.com/verte-zerg/runtally/internal/model"
)

// DefaultRepeatGuardMs is the controller repeat guard used when the
// settings document does not override it.
const DefaultRepeatGuardMs = 150

// Settings is the resolved configuration document. Load fills every field,
// falling back to platform defaults for anything the file leaves out.
type Settings struct {
	LogLevel   string             `toml:"log_level"`
	Controller ControllerSettings `toml:"controller"`
	Keyboard   KeyboardMap        `toml:"keyboard_map"`
	Dpad       DpadMap            `toml:"dpad_map"`
}

// ControllerSettings configure the controller input source.
type ControllerSettings struct {
	Enabled       bool `toml:"enabled"`
	DeviceIndex   int  `toml:"device_index"`
	HatIndex      int  `toml:"hat_index"`
	RepeatGuardMs int  `toml:"repeat_guard_ms"`
}

// KeyboardMap assigns one key combo per action. An empty combo leaves the
// action unbound.
type KeyboardMap struct {
	ToggleStartStop string `toml:"toggle_start_stop"`
	NextRun         string `toml:"next_run"`
	ResetTimer      string `toml:"reset_timer"`
	ResetSession    string `toml:"reset_session"`
	UndoLast        string `toml:"undo_last"`
}

// Combo returns the combo bound to action, or "" when unbound.
func (m KeyboardMap) Combo(action model.Action) string {
	switch action {
	case model.ActionToggleStartStop:
		return m.ToggleStartStop
	case model.ActionNextRun:
		return m.NextRun
	case model.ActionResetTimer:
		return m.ResetTimer
	case model.ActionResetSession:
		return m.ResetSession
	case model.ActionUndoLast:
		return m.UndoLast
	}
	return ""
}

// Bindings lists all actions with their combos in declaration order.
// Unbound actions appear with an empty combo.
func (m KeyboardMap) Bindings() []model.Binding {
	bindings := make([]model.Binding, 0, len(model.Actions))
	for _, action := range model.Actions {
		bindings = append(bindings, model.Binding{Action: action, Combo: m.Combo(action)})
	}
	return bindings
}

// DpadMap assigns an action name per D-pad direction. "none" leaves the
// direction inert.
type DpadMap struct {
	Up    string `toml:"up"`
	Right string `toml:"right"`
	Down  string `toml:"down"`
	Left  string `toml:"left"`
}

type dpadEntry struct {
	dir  model.Direction
	name string
}

func (m DpadMap) entries() []dpadEntry {
	return []dpadEntry{
		{model.DirUp, m.Up},
		{model.DirRight, m.Right},
		{model.DirDown, m.Down},
		{model.DirLeft, m.Left},
	}
}

// ActionFor resolves a direction to its bound action. Unknown names and
// "none" entries resolve to ActionNone.
func (m DpadMap) ActionFor(dir model.Direction) model.Action {
	for _, e := range m.entries() {
		if e.dir != dir {
			continue
		}
		action, ok := model.ParseAction(e.name)
		if !ok {
			return model.ActionNone
		}
		return action
	}
	return model.ActionNone
}

// Default returns the platform defaults for a fresh settings document.
func Default() Settings {
	return defaultForGOOS(runtime.GOOS)
}

func defaultForGOOS(goos string) Settings {
	mod := "ctrl"
	if goos == "darwin" {
		mod = "cmd"
	}
	return Settings{
		LogLevel: "info",
		Controller: ControllerSettings{
			Enabled:       true,
			DeviceIndex:   0,
			HatIndex:      0,
			RepeatGuardMs: DefaultRepeatGuardMs,
		},
		Keyboard: KeyboardMap{
			ToggleStartStop: mod + "+alt+1",
			NextRun:         mod + "+alt+2",
			ResetTimer:      mod + "+alt+3",
			ResetSession:    mod + "+alt+4",
			UndoLast:        mod + "+alt+5",
		},
		Dpad: DpadMap{Up: "none", Right: "none", Down: "none", Left: "none"},
	}
}

// fileSettings is the decode target. Pointer fields distinguish a value the
// file omits from one it sets to a zero value.
type fileSettings struct {
	LogLevel   *string         `toml:"log_level"`
	Controller fileController  `toml:"controller"`
	Keyboard   fileKeyboardMap `toml:"keyboard_map"`
	Dpad       fileDpadMap     `toml:"dpad_map"`
}

type fileController struct {
	Enabled       *bool `toml:"enabled"`
	DeviceIndex   *int  `toml:"device_index"`
	HatIndex      *int  `toml:"hat_index"`
	RepeatGuardMs *int  `toml:"repeat_guard_ms"`
}

type fileKeyboardMap struct {
	ToggleStartStop *string `toml:"toggle_start_stop"`
	NextRun         *string `toml:"next_run"`
	ResetTimer      *string `toml:"reset_timer"`
	ResetSession    *string `toml:"reset_session"`
	UndoLast        *string `toml:"undo_last"`
}

type fileDpadMap struct {
	Up    *string `toml:"up"`
	Right *string `toml:"right"`
	Down  *string `toml:"down"`
	Left  *string `toml:"left"`
}

// Load reads the settings document at path. A missing file is created with
// platform defaults. Bad values in an existing file are coerced with a
// warning so a hand-edited document never prevents startup.
func Load(path string, logger *slog.Logger) (Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config")
	if path == "" {
		return Settings{}, fmt.Errorf("settings path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("failed to stat settings: %w", err)
		}
		defaults := Default()
		if err := Save(path, defaults); err != nil {
			return Settings{}, fmt.Errorf("failed to write default settings: %w", err)
		}
		logger.Info("settings file created", "path", path)
		return defaults, nil
	}
	var file fileSettings
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return resolve(file, logger), nil
}

func resolve(file fileSettings, logger *slog.Logger) Settings {
	s := Default()
	if file.LogLevel != nil {
		s.LogLevel = strings.ToLower(strings.TrimSpace(*file.LogLevel))
	}
	if file.Controller.Enabled != nil {
		s.Controller.Enabled = *file.Controller.Enabled
	}
	s.Controller.DeviceIndex = resolveIndex("controller.device_index", file.Controller.DeviceIndex, s.Controller.DeviceIndex, logger)
	s.Controller.HatIndex = resolveIndex("controller.hat_index", file.Controller.HatIndex, s.Controller.HatIndex, logger)
	s.Controller.RepeatGuardMs = resolveIndex("controller.repeat_guard_ms", file.Controller.RepeatGuardMs, s.Controller.RepeatGuardMs, logger)
	resolveCombo(&s.Keyboard.ToggleStartStop, file.Keyboard.ToggleStartStop, model.ActionToggleStartStop, logger)
	resolveCombo(&s.Keyboard.NextRun, file.Keyboard.NextRun, model.ActionNextRun, logger)
	resolveCombo(&s.Keyboard.ResetTimer, file.Keyboard.ResetTimer, model.ActionResetTimer, logger)
	resolveCombo(&s.Keyboard.ResetSession, file.Keyboard.ResetSession, model.ActionResetSession, logger)
	resolveCombo(&s.Keyboard.UndoLast, file.Keyboard.UndoLast, model.ActionUndoLast, logger)
	s.Dpad.Up = resolveDpad(model.DirUp, file.Dpad.Up, logger)
	s.Dpad.Right = resolveDpad(model.DirRight, file.Dpad.Right, logger)
	s.Dpad.Down = resolveDpad(model.DirDown, file.Dpad.Down, logger)
	s.Dpad.Left = resolveDpad(model.DirLeft, file.Dpad.Left, logger)
	return s
}

func resolveIndex(field string, src *int, fallback int, logger *slog.Logger) int {
	if src == nil {
		return fallback
	}
	if *src < 0 {
		logger.Warn("negative value in settings, using default", "field", field, "value", *src, "default", fallback)
		return fallback
	}
	return *src
}

func resolveCombo(dst *string, src *string, action model.Action, logger *slog.Logger) {
	if src == nil {
		return
	}
	normalized := combo.Normalize(*src)
	if normalized == "" {
		*dst = ""
		return
	}
	if _, err := combo.Parse(normalized); err != nil {
		logger.Warn("invalid key combo in settings, leaving action unbound", "action", action, "combo", *src)
		*dst = ""
		return
	}
	*dst = normalized
}

func resolveDpad(dir model.Direction, src *string, logger *slog.Logger) string {
	if src == nil {
		return string(model.ActionNone)
	}
	action, ok := model.ParseAction(*src)
	if !ok {
		logger.Warn("invalid d-pad action in settings, using none", "direction", dir, "action", *src)
		return string(model.ActionNone)
	}
	return string(action)
}

// Save validates cfg and writes it atomically, creating the parent
// directory if needed.
func Save(path string, cfg Settings) error {
	if path == "" {
		return fmt.Errorf("settings path is empty")
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close() // Best-effort close.
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// Validate checks cfg before it is persisted. Errors name the offending
// field.
func Validate(cfg Settings) error {
	if cfg.Controller.DeviceIndex < 0 {
		return fmt.Errorf("controller.device_index must be >= 0")
	}
	if cfg.Controller.HatIndex < 0 {
		return fmt.Errorf("controller.hat_index must be >= 0")
	}
	if cfg.Controller.RepeatGuardMs < 0 {
		return fmt.Errorf("controller.repeat_guard_ms must be >= 0")
	}
	seenCombos := make(map[string]model.Action)
	for _, b := range cfg.Keyboard.Bindings() {
		if b.Combo == "" {
			continue
		}
		canonical := combo.Normalize(b.Combo)
		if _, err := combo.Parse(canonical); err != nil {
			return fmt.Errorf("keyboard_map.%s: invalid combo %q: %w", b.Action, b.Combo, err)
		}
		if prev, ok := seenCombos[canonical]; ok {
			return fmt.Errorf("keyboard_map: combo %q bound to both %s and %s", canonical, prev, b.Action)
		}
		seenCombos[canonical] = b.Action
	}
	seenActions := make(map[model.Action]model.Direction)
	for _, e := range cfg.Dpad.entries() {
		if e.name == "" {
			continue
		}
		action, ok := model.ParseAction(e.name)
		if !ok {
			return fmt.Errorf("dpad_map.%s: unknown action %q", e.dir, e.name)
		}
		if action == model.ActionNone {
			continue
		}
		if prev, ok := seenActions[action]; ok {
			return fmt.Errorf("dpad_map: action %q bound to both %s and %s", action, prev, e.dir)
		}
		seenActions[action] = e.dir
	}
	return nil
}
