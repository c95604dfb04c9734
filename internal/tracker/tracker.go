// Package tracker implements the run timer state machine.
package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/runtally/internal/model"
)

// Log is the durable record the tracker appends completed runs to.
type Log interface {
	Append(model.RunRecord) error
	RemoveMostRecentForSession(sessionID string) (bool, error)
}

// NextRunResult describes the outcome of a NextRun transition.
type NextRunResult string

// NextRun outcomes.
const (
	StartedFirstRun     NextRunResult = "started_first_run"
	SavedAndStartedNext NextRunResult = "saved_and_started_next"
	SavedLimitReached   NextRunResult = "saved_limit_reached"
)

// UndoReason explains a rejected or empty undo.
type UndoReason string

// Undo rejection reasons.
const (
	UndoActiveRunPresent UndoReason = "active_run_present"
	UndoNoRows           UndoReason = "no_rows"
)

// Tracker owns the run lifecycle for one session at a time: elapsed
// time, run numbering, session identity, and the saved-run counter.
// Not safe for concurrent use; the dispatch loop is its only caller.
type Tracker struct {
	log   Log
	now   func() time.Time
	newID func() string

	sessionID     string
	runNumber     int
	savedRuns     int
	running       bool
	startInstant  time.Time // start of the live segment; zero while stopped
	startedAt     time.Time // wall-clock start of the current run; zero when none started
	accumulatedMs int64
	lastRecord    *model.RunRecord
}

// New returns a Tracker over the given log with a fresh session id.
func New(log Log) *Tracker {
	return NewWithClock(log, time.Now, NewSessionID)
}

// NewWithClock returns a Tracker with an injected clock and session-id
// generator.
func NewWithClock(log Log, now func() time.Time, newID func() string) *Tracker {
	return &Tracker{
		log:       log,
		now:       now,
		newID:     newID,
		sessionID: newID(),
		runNumber: 1,
	}
}

// NewSessionID returns a short opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()[:8]
}

// SetLog swaps the backing log. Used when a new session rotates to a
// fresh file.
func (t *Tracker) SetLog(log Log) {
	t.log = log
}

// SessionID returns the current session identifier.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// RunNumber returns the 1-based number of the current run.
func (t *Tracker) RunNumber() int {
	return t.runNumber
}

// SavedRuns returns how many runs this session has saved.
func (t *Tracker) SavedRuns() int {
	return t.savedRuns
}

// IsRunning reports whether the timer is live.
func (t *Tracker) IsRunning() bool {
	return t.running
}

// Started reports whether the current run has a start timestamp, saved
// or not. UndoLast is rejected while this holds.
func (t *Tracker) Started() bool {
	return !t.startedAt.IsZero()
}

// LastRecord returns the most recently saved record, if any.
func (t *Tracker) LastRecord() *model.RunRecord {
	return t.lastRecord
}

// ElapsedMilliseconds returns accumulated time plus the live segment,
// clamped to zero.
func (t *Tracker) ElapsedMilliseconds() int64 {
	ms := t.accumulatedMs
	if t.running && !t.startInstant.IsZero() {
		ms += t.now().Sub(t.startInstant).Milliseconds()
	}
	if ms < 0 {
		return 0
	}
	return ms
}

// FormattedElapsed renders the current elapsed time.
func (t *Tracker) FormattedElapsed() string {
	return FormatElapsed(t.ElapsedMilliseconds())
}

// FormatElapsed renders milliseconds as MM:SS.CC, growing to
// HH:MM:SS.CC past the first hour. Centiseconds truncate.
func FormatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSec := ms / 1000
	cs := (ms % 1000) / 10
	sec := totalSec % 60
	min := (totalSec / 60) % 60
	hours := totalSec / 3600
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, min, sec, cs)
	}
	return fmt.Sprintf("%02d:%02d.%02d", min, sec, cs)
}

func (t *Tracker) start() {
	if t.running {
		return
	}
	if t.startedAt.IsZero() {
		t.startedAt = t.now()
	}
	t.startInstant = t.now()
	t.running = true
}

// stop folds the live segment into the accumulated total so repeated
// start/stop cycles never double-count or lose time.
func (t *Tracker) stop() {
	if !t.running {
		return
	}
	t.accumulatedMs = t.ElapsedMilliseconds()
	t.startInstant = time.Time{}
	t.running = false
}

// ToggleStartStop flips the timer and reports true when it started.
func (t *Tracker) ToggleStartStop() bool {
	if t.running {
		t.stop()
		return false
	}
	t.start()
	return true
}

// ResetTimer clears the live timer. Run number, session id, and the
// saved-run count stay untouched.
func (t *Tracker) ResetTimer() {
	t.running = false
	t.startInstant = time.Time{}
	t.startedAt = time.Time{}
	t.accumulatedMs = 0
}

// ResetSession resets the timer and starts a fresh session identity.
// The log file is not rotated here; the caller owns that collaboration.
func (t *Tracker) ResetSession() {
	t.ResetTimer()
	t.sessionID = t.newID()
	t.runNumber = 1
	t.savedRuns = 0
	t.lastRecord = nil
}

// NextRun saves the current run, when one was started, and begins the
// next. maxSavedRuns caps saved rows per session; zero or negative means
// no cap. At the cap the timer is left stopped. An append failure leaves
// all counters unchanged so the run can be saved again.
func (t *Tracker) NextRun(note string, maxSavedRuns int) (*model.RunRecord, NextRunResult, error) {
	if t.startedAt.IsZero() {
		t.start()
		return nil, StartedFirstRun, nil
	}
	t.stop()
	durationMs := t.ElapsedMilliseconds()
	rec := model.RunRecord{
		SessionID:   t.sessionID,
		RunNumber:   t.runNumber,
		StartedAt:   t.startedAt,
		EndedAt:     t.now(),
		DurationMs:  durationMs,
		DurationSec: float64(durationMs) / 1000.0,
		Note:        strings.TrimSpace(note),
	}
	if err := t.log.Append(rec); err != nil {
		return nil, "", fmt.Errorf("failed to save run: %w", err)
	}
	t.lastRecord = &rec
	t.savedRuns++
	t.runNumber++
	t.ResetTimer()
	if maxSavedRuns > 0 && t.savedRuns >= maxSavedRuns {
		return &rec, SavedLimitReached, nil
	}
	t.start()
	return &rec, SavedAndStartedNext, nil
}

// UndoLast removes the newest saved run of the current session. It is
// rejected while a run is in progress; the guard is "a start timestamp
// is set", not "elapsed reads zero", so numbering cannot drift even at
// clock granularity.
func (t *Tracker) UndoLast() (bool, UndoReason, error) {
	if !t.startedAt.IsZero() || t.ElapsedMilliseconds() > 0 {
		return false, UndoActiveRunPresent, nil
	}
	removed, err := t.log.RemoveMostRecentForSession(t.sessionID)
	if err != nil {
		return false, "", fmt.Errorf("failed to undo run: %w", err)
	}
	if !removed {
		return false, UndoNoRows, nil
	}
	if t.runNumber > 1 {
		t.runNumber--
	}
	if t.savedRuns > 0 {
		t.savedRuns--
	}
	return true, "", nil
}

// Snapshot is the read-only view the UI renders each tick.
type Snapshot struct {
	SessionID string
	RunNumber int
	SavedRuns int
	Running   bool
	Started   bool
	ElapsedMs int64
	Elapsed   string
}

// Snapshot captures the current tracker state for display.
func (t *Tracker) Snapshot() Snapshot {
	ms := t.ElapsedMilliseconds()
	return Snapshot{
		SessionID: t.sessionID,
		RunNumber: t.runNumber,
		SavedRuns: t.savedRuns,
		Running:   t.running,
		Started:   t.Started(),
		ElapsedMs: ms,
		Elapsed:   FormatElapsed(ms),
	}
}
