package tracker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/verte-zerg/runtally/internal/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type fakeLog struct {
	records   []model.RunRecord
	appendErr error
	removeErr error
}

func (l *fakeLog) Append(rec model.RunRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLog) RemoveMostRecentForSession(sessionID string) (bool, error) {
	if l.removeErr != nil {
		return false, l.removeErr
	}
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].SessionID == sessionID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestTracker() (*Tracker, *fakeClock, *fakeLog) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	log := &fakeLog{}
	ids := 0
	newID := func() string {
		ids++
		return fmt.Sprintf("sess%04d", ids)
	}
	return NewWithClock(log, clock.now, newID), clock, log
}

func TestToggleStartStopAccumulates(t *testing.T) {
	tr, clock, _ := newTestTracker()

	if started := tr.ToggleStartStop(); !started {
		t.Fatalf("expected first toggle to start")
	}
	clock.advance(1500 * time.Millisecond)
	if started := tr.ToggleStartStop(); started {
		t.Fatalf("expected second toggle to stop")
	}
	if got := tr.ElapsedMilliseconds(); got != 1500 {
		t.Fatalf("expected 1500ms, got %d", got)
	}

	// Time does not pass while stopped.
	clock.advance(time.Hour)
	if got := tr.ElapsedMilliseconds(); got != 1500 {
		t.Fatalf("expected 1500ms while stopped, got %d", got)
	}

	// Restarting adds to the accumulated total exactly once.
	tr.ToggleStartStop()
	clock.advance(500 * time.Millisecond)
	tr.ToggleStartStop()
	if got := tr.ElapsedMilliseconds(); got != 2000 {
		t.Fatalf("expected 2000ms after restart, got %d", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00.00"},
		{9, "00:00.00"},
		{999, "00:00.99"},
		{1234, "00:01.23"},
		{59999, "00:59.99"},
		{61230, "01:01.23"},
		{3599999, "59:59.99"},
		{3600000, "01:00:00.00"},
		{3723456, "01:02:03.45"},
		{-5, "00:00.00"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.ms); got != tc.want {
			t.Fatalf("FormatElapsed(%d): expected %q, got %q", tc.ms, tc.want, got)
		}
	}
}

func TestNextRunFirstOnlyStarts(t *testing.T) {
	tr, _, log := newTestTracker()

	rec, res, err := tr.NextRun("", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != StartedFirstRun {
		t.Fatalf("expected %q, got %q", StartedFirstRun, res)
	}
	if rec != nil {
		t.Fatalf("expected no record on first start, got %+v", rec)
	}
	if !tr.IsRunning() || !tr.Started() {
		t.Fatalf("expected tracker running after first start")
	}
	if len(log.records) != 0 {
		t.Fatalf("expected empty log, got %d records", len(log.records))
	}
}

func TestNextRunSavesAndRestarts(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.ToggleStartStop()
	clock.advance(42 * time.Second)
	rec, res, err := tr.NextRun("boss", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != SavedAndStartedNext {
		t.Fatalf("expected %q, got %q", SavedAndStartedNext, res)
	}
	if rec == nil {
		t.Fatalf("expected a saved record")
	}
	if rec.RunNumber != 1 || rec.Note != "boss" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.DurationMs != 42000 || rec.DurationSec != 42.0 {
		t.Fatalf("unexpected duration: %+v", rec)
	}
	if rec.EndedAt.Sub(rec.StartedAt) != 42*time.Second {
		t.Fatalf("unexpected timestamps: %+v", rec)
	}
	if tr.RunNumber() != 2 {
		t.Fatalf("expected run number 2, got %d", tr.RunNumber())
	}
	if !tr.IsRunning() {
		t.Fatalf("expected next run to start automatically")
	}
	if tr.ElapsedMilliseconds() != 0 {
		t.Fatalf("expected fresh timer, got %dms", tr.ElapsedMilliseconds())
	}
	if len(log.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(log.records))
	}
}

func TestRunNumberingMatchesSavedRecords(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.NextRun("", 0)
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		if _, _, err := tr.NextRun("", 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.RunNumber() != len(log.records)+1 {
			t.Fatalf("expected run number %d, got %d", len(log.records)+1, tr.RunNumber())
		}
		if log.records[i].RunNumber != i+1 {
			t.Fatalf("expected record number %d, got %d", i+1, log.records[i].RunNumber)
		}
	}
}

func TestNextRunAtLimitStopsTimer(t *testing.T) {
	tr, clock, _ := newTestTracker()

	tr.NextRun("", 1)
	clock.advance(3 * time.Second)
	rec, res, err := tr.NextRun("", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != SavedLimitReached {
		t.Fatalf("expected %q, got %q", SavedLimitReached, res)
	}
	if rec == nil || rec.RunNumber != 1 {
		t.Fatalf("expected record for run 1, got %+v", rec)
	}
	if tr.SavedRuns() != 1 {
		t.Fatalf("expected 1 saved run, got %d", tr.SavedRuns())
	}
	if tr.IsRunning() {
		t.Fatalf("expected timer stopped at limit")
	}
	if tr.ElapsedMilliseconds() != 0 {
		t.Fatalf("expected timer reset at limit, got %dms", tr.ElapsedMilliseconds())
	}
}

func TestUndoBlockedWhileRunActive(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.ToggleStartStop()
	clock.advance(time.Second)
	tr.NextRun("", 0)

	// The next run auto-started, so undo must be refused.
	ok, reason, err := tr.UndoLast()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || reason != UndoActiveRunPresent {
		t.Fatalf("expected active_run_present, got ok=%v reason=%q", ok, reason)
	}

	tr.ResetTimer()
	ok, reason, err = tr.UndoLast()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || reason != "" {
		t.Fatalf("expected undo to succeed, got ok=%v reason=%q", ok, reason)
	}
	if tr.RunNumber() != 1 || tr.SavedRuns() != 0 {
		t.Fatalf("expected counters to revert, got run=%d saved=%d", tr.RunNumber(), tr.SavedRuns())
	}
	if len(log.records) != 0 {
		t.Fatalf("expected empty log after undo, got %d records", len(log.records))
	}
}

func TestUndoGuardUsesStartTimestampNotElapsed(t *testing.T) {
	tr, _, _ := newTestTracker()

	// Start and stop with no clock movement: elapsed reads zero but a
	// start timestamp exists, so undo stays blocked.
	tr.ToggleStartStop()
	tr.ToggleStartStop()
	if tr.ElapsedMilliseconds() != 0 {
		t.Fatalf("expected zero elapsed, got %d", tr.ElapsedMilliseconds())
	}
	ok, reason, err := tr.UndoLast()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || reason != UndoActiveRunPresent {
		t.Fatalf("expected active_run_present, got ok=%v reason=%q", ok, reason)
	}
}

func TestUndoWithNothingSaved(t *testing.T) {
	tr, _, _ := newTestTracker()

	ok, reason, err := tr.UndoLast()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || reason != UndoNoRows {
		t.Fatalf("expected no_rows, got ok=%v reason=%q", ok, reason)
	}
}

func TestUndoOnlyTouchesCurrentSession(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.ToggleStartStop()
	clock.advance(time.Second)
	tr.NextRun("", 0)
	tr.ResetTimer()

	// A foreign row appended later must not be the one removed.
	log.records = append(log.records, model.RunRecord{SessionID: "other999", RunNumber: 7})

	ok, _, err := tr.UndoLast()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected undo to succeed")
	}
	if len(log.records) != 1 || log.records[0].SessionID != "other999" {
		t.Fatalf("expected foreign row to survive, got %+v", log.records)
	}
}

func TestResetTimerKeepsCounters(t *testing.T) {
	tr, clock, _ := newTestTracker()

	tr.NextRun("", 0)
	clock.advance(time.Second)
	tr.NextRun("", 0)
	session := tr.SessionID()

	tr.ResetTimer()
	if tr.IsRunning() || tr.Started() {
		t.Fatalf("expected idle tracker after reset")
	}
	if tr.ElapsedMilliseconds() != 0 {
		t.Fatalf("expected zero elapsed, got %d", tr.ElapsedMilliseconds())
	}
	if tr.RunNumber() != 2 || tr.SavedRuns() != 1 || tr.SessionID() != session {
		t.Fatalf("expected counters untouched, got run=%d saved=%d session=%s",
			tr.RunNumber(), tr.SavedRuns(), tr.SessionID())
	}
}

func TestResetSessionRegeneratesIdentity(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.NextRun("", 0)
	clock.advance(time.Second)
	tr.NextRun("", 0)
	oldSession := tr.SessionID()

	tr.ResetSession()
	if tr.SessionID() == oldSession {
		t.Fatalf("expected a new session id")
	}
	if tr.RunNumber() != 1 || tr.SavedRuns() != 0 {
		t.Fatalf("expected counters reset, got run=%d saved=%d", tr.RunNumber(), tr.SavedRuns())
	}
	if tr.LastRecord() != nil {
		t.Fatalf("expected last record cleared")
	}
	// Rotating the log file is the caller's job, not the tracker's.
	if len(log.records) != 1 {
		t.Fatalf("expected log untouched, got %d records", len(log.records))
	}
}

func TestNextRunAppendFailureLeavesStateRetryable(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.ToggleStartStop()
	clock.advance(time.Second)
	log.appendErr = errors.New("disk full")

	_, _, err := tr.NextRun("boss", 0)
	if err == nil {
		t.Fatalf("expected append failure to surface")
	}
	if tr.RunNumber() != 1 || tr.SavedRuns() != 0 {
		t.Fatalf("expected counters unchanged, got run=%d saved=%d", tr.RunNumber(), tr.SavedRuns())
	}
	if !tr.Started() {
		t.Fatalf("expected run start preserved for retry")
	}

	log.appendErr = nil
	rec, res, err := tr.NextRun("boss", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != SavedAndStartedNext || rec.RunNumber != 1 {
		t.Fatalf("expected retried save of run 1, got res=%q rec=%+v", res, rec)
	}
}

func TestUndoLogFailureSurfaces(t *testing.T) {
	tr, _, log := newTestTracker()
	log.removeErr = errors.New("permission denied")

	_, _, err := tr.UndoLast()
	if err == nil {
		t.Fatalf("expected log failure to surface")
	}
}

func TestNextRunTrimsNote(t *testing.T) {
	tr, clock, log := newTestTracker()

	tr.NextRun("", 0)
	clock.advance(time.Second)
	tr.NextRun("  countess  ", 0)
	if log.records[0].Note != "countess" {
		t.Fatalf("expected trimmed note, got %q", log.records[0].Note)
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	tr, clock, _ := newTestTracker()

	tr.ToggleStartStop()
	clock.advance(1230 * time.Millisecond)
	snap := tr.Snapshot()
	if !snap.Running || !snap.Started {
		t.Fatalf("expected running snapshot, got %+v", snap)
	}
	if snap.ElapsedMs != 1230 || snap.Elapsed != "00:01.23" {
		t.Fatalf("unexpected elapsed: %+v", snap)
	}
	if snap.RunNumber != 1 || snap.SavedRuns != 0 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.SessionID != tr.SessionID() {
		t.Fatalf("unexpected session id: %+v", snap)
	}
}
