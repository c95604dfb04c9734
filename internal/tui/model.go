// Package tui provides the Bubble Tea run timer interface.
package tui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/runtally/internal/dispatch"
	"github.com/verte-zerg/runtally/internal/model"
	"github.com/verte-zerg/runtally/internal/runlog"
	"github.com/verte-zerg/runtally/internal/tracker"
)

// SessionRunLimit caps saved rows per session. Once it is reached only a
// session reset is accepted.
const SessionRunLimit = 500

const tickInterval = 100 * time.Millisecond

// InputSource reports whether a global input source is delivering events.
// Both the keyboard listener and the controller poller satisfy it.
type InputSource interface {
	Available() bool
	Reason() string
}

type tickMsg time.Time

// Model implements the Bubble Tea run timer UI. It is the sole owner of
// the tracker and the run log; input sources only reach them through the
// dispatch queue drained on every tick.
type Model struct {
	tracker    *tracker.Tracker
	queue      *dispatch.Queue
	log        *runlog.File
	logBase    string
	hotkeys    InputSource
	controller InputSource
	logger     *slog.Logger

	width  int
	height int

	note        textinput.Model
	editingNote bool
	noteBackup  string

	status string
}

var (
	timerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the run timer model. Input sources must already be
// started so their availability is known.
func NewModel(tr *tracker.Tracker, queue *dispatch.Queue, logFile *runlog.File, logBase string, hotkeys, controller InputSource, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tui")
	m := &Model{
		tracker:    tr,
		queue:      queue,
		log:        logFile,
		logBase:    logBase,
		hotkeys:    hotkeys,
		controller: controller,
		logger:     logger,
		note:       newNoteInput(),
	}
	m.status = m.initialStatus()
	return m
}

func newNoteInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Note: "
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) initialStatus() string {
	name := filepath.Base(m.log.Path())
	if m.hotkeys.Available() {
		return fmt.Sprintf("Global hotkeys active. Log: %s", name)
	}
	if reason := m.hotkeys.Reason(); reason != "" {
		return fmt.Sprintf("%s (local keys still work)", reason)
	}
	return fmt.Sprintf("Ready. Log: %s", name)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		for _, cmd := range m.queue.Drain() {
			m.apply(cmd.Action, cmd.Source)
		}
		return m, tickCmd()
	case tea.KeyMsg:
		if m.editingNote {
			return m.updateNote(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeySpace:
			m.apply(model.ActionToggleStartStop, model.SourceLocalKey)
			return m, nil
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "n":
			m.apply(model.ActionNextRun, model.SourceLocalKey)
		case "r":
			m.apply(model.ActionResetTimer, model.SourceLocalKey)
		case "s":
			m.apply(model.ActionResetSession, model.SourceLocalKey)
		case "u":
			m.apply(model.ActionUndoLast, model.SourceLocalKey)
		case "i":
			return m.startNoteEdit()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) startNoteEdit() (tea.Model, tea.Cmd) {
	m.editingNote = true
	m.noteBackup = m.note.Value()
	return m, m.note.Focus()
}

func (m *Model) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.note.SetValue(m.noteBackup)
		m.note.Blur()
		m.editingNote = false
		return m, nil
	case tea.KeyEnter:
		m.note.Blur()
		m.editingNote = false
		return m, nil
	}
	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	return m, cmd
}

// apply runs one action against the tracker and records the outcome in
// the status line. Nothing but a session reset is accepted once the
// session has hit the run limit.
func (m *Model) apply(action model.Action, source string) {
	m.logger.Info("action received", "source", source, "action", action)
	snap := m.tracker.Snapshot()
	if snap.SavedRuns >= SessionRunLimit && action != model.ActionResetSession {
		m.status = runLimitMessage()
		m.logger.Warn("action blocked by run limit",
			"source", source,
			"action", action,
			"saved_runs", snap.SavedRuns,
			"limit", SessionRunLimit)
		return
	}
	switch action {
	case model.ActionToggleStartStop:
		if m.tracker.ToggleStartStop() {
			m.status = "Timer started."
		} else {
			m.status = "Timer stopped."
		}
	case model.ActionNextRun:
		m.applyNextRun()
	case model.ActionResetTimer:
		m.tracker.ResetTimer()
		m.status = "Current timer reset (run number unchanged)."
	case model.ActionResetSession:
		m.applyResetSession()
	case model.ActionUndoLast:
		m.applyUndo()
	default:
		return
	}
	after := m.tracker.Snapshot()
	m.logger.Info("action applied",
		"source", source,
		"action", action,
		"run", after.RunNumber,
		"session", after.SessionID,
		"running", after.Running,
		"elapsed_ms", after.ElapsedMs)
}

func (m *Model) applyNextRun() {
	record, result, err := m.tracker.NextRun(m.note.Value(), SessionRunLimit)
	if err != nil {
		m.status = fmt.Sprintf("Failed to save run: %v", err)
		m.logger.Error("run save failed", "error", err)
		return
	}
	switch result {
	case tracker.StartedFirstRun:
		m.status = "Started run #1 (no row saved yet)."
	case tracker.SavedLimitReached:
		m.note.SetValue("")
		m.status = fmt.Sprintf("Saved run #%d: %.3fs. %s",
			record.RunNumber, record.DurationSec, runLimitMessage())
	case tracker.SavedAndStartedNext:
		m.note.SetValue("")
		m.status = fmt.Sprintf("Saved run #%d: %.3fs; started run #%d.",
			record.RunNumber, record.DurationSec, m.tracker.RunNumber())
	}
}

// applyResetSession rotates the log file before touching the tracker, so
// a rotation failure leaves the old session fully intact.
func (m *Model) applyResetSession() {
	path := runlog.SessionPath(m.logBase, time.Now())
	next, err := runlog.Open(path)
	if err != nil {
		m.status = fmt.Sprintf("Failed to start new session: %v", err)
		m.logger.Error("log rotation failed", "path", path, "error", err)
		return
	}
	m.log = next
	m.tracker.SetLog(next)
	m.tracker.ResetSession()
	m.note.SetValue("")
	m.status = fmt.Sprintf("New session started; log %s; counter reset to run #1.",
		filepath.Base(next.Path()))
	m.logger.Info("session log rotated", "path", next.Path())
}

func (m *Model) applyUndo() {
	undone, reason, err := m.tracker.UndoLast()
	if err != nil {
		m.status = fmt.Sprintf("Failed to undo: %v", err)
		m.logger.Error("undo failed", "error", err)
		return
	}
	if undone {
		m.status = "Removed last run for this session."
		return
	}
	if reason == tracker.UndoActiveRunPresent {
		m.status = "Undo blocked: reset the current run first."
		return
	}
	m.status = "Nothing to undo for this session."
}

func runLimitMessage() string {
	return fmt.Sprintf("Run limit %d reached. Start a new session.", SessionRunLimit)
}

// View implements tea.Model.
func (m *Model) View() string {
	snap := m.tracker.Snapshot()
	lines := []string{
		timerStyle.Render(snap.Elapsed),
		m.stateLine(snap),
		"",
		labelStyle.Render(fmt.Sprintf("Run #%d", snap.RunNumber)),
		labelStyle.Render(fmt.Sprintf("Session %s", snap.SessionID)),
		labelStyle.Render(fmt.Sprintf("Log %s", filepath.Base(m.log.Path()))),
		m.limitLine(snap),
		"",
		sourceLine("Hotkeys", m.hotkeys),
		sourceLine("Controller", m.controller),
		"",
		m.note.View(),
		"",
		m.statusLine(),
	}
	content := strings.Join(lines, "\n")
	footer := footerStyle.Render(m.helpText())
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) stateLine(snap tracker.Snapshot) string {
	switch {
	case snap.Running:
		return runningStyle.Render("Running")
	case snap.Started:
		return pausedStyle.Render("Paused")
	default:
		return idleStyle.Render("Idle")
	}
}

func (m *Model) limitLine(snap tracker.Snapshot) string {
	line := fmt.Sprintf("Saved runs in session: %d/%d", snap.SavedRuns, SessionRunLimit)
	if snap.SavedRuns >= SessionRunLimit {
		return warnStyle.Render(line)
	}
	return labelStyle.Render(line)
}

func sourceLine(name string, src InputSource) string {
	if src.Available() {
		return labelStyle.Render(name + ": active")
	}
	reason := src.Reason()
	if reason == "" {
		reason = "unavailable"
	}
	return warnStyle.Render(name + ": " + reason)
}

func (m *Model) statusLine() string {
	status := m.status
	if m.width > 0 {
		status = runewidth.Truncate(status, m.width, "...")
	}
	return statusStyle.Render(status)
}

func (m *Model) helpText() string {
	if m.editingNote {
		return "Note: enter to keep, esc to discard"
	}
	return "Toggle: space  Next: n  Reset: r  New session: s  Undo: u  Note: i  Quit: q"
}
