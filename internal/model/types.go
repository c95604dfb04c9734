// Package model defines the shared action vocabulary and run records.
package model

import (
	"strings"
	"time"
)

// Action is one normalized timer command emitted by an input source.
// The string form is the config-file spelling.
type Action string

// The closed action vocabulary. ActionNone marks a signal that was
// recognized but intentionally left unbound.
const (
	ActionToggleStartStop Action = "toggle_start_stop"
	ActionNextRun         Action = "next_run"
	ActionResetTimer      Action = "reset_timer"
	ActionResetSession    Action = "reset_session"
	ActionUndoLast        Action = "undo_last"
	ActionNone            Action = "none"
)

// Actions lists the five real actions in binding declaration order.
// Hotkey matching scans them in this order.
var Actions = []Action{
	ActionToggleStartStop,
	ActionNextRun,
	ActionResetTimer,
	ActionResetSession,
	ActionUndoLast,
}

// ParseAction maps a config spelling to an Action. Unknown spellings
// return (ActionNone, false).
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionToggleStartStop, ActionNextRun, ActionResetTimer, ActionResetSession, ActionUndoLast, ActionNone:
		return a, true
	default:
		return ActionNone, false
	}
}

// Direction is one D-pad direction resolved from controller input.
type Direction string

// Directions reported by the controller source. DirNone means centered
// or a diagonal, which never maps to an action.
const (
	DirUp    Direction = "up"
	DirRight Direction = "right"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirNone  Direction = "none"
)

// Source tags carried on the dispatch queue.
const (
	SourceGlobalHotkey = "global_hotkey"
	SourceController   = "controller"
	SourceLocalKey     = "local_key"
)

// Command pairs an action with the input source that produced it.
type Command struct {
	Source string
	Action Action
}

// Binding associates an action with a canonical key-combo string.
type Binding struct {
	Action Action
	Combo  string
}

// RunRecord is one completed run, immutable once appended to the log.
// DurationSec repeats DurationMs in seconds for display and the log file.
type RunRecord struct {
	SessionID   string
	RunNumber   int
	StartedAt   time.Time
	EndedAt     time.Time
	DurationMs  int64
	DurationSec float64
	Note        string
}
