package hotkey

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/verte-zerg/runtally/internal/combo"
	"github.com/verte-zerg/runtally/internal/debounce"
	"github.com/verte-zerg/runtally/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type recorder struct {
	actions []model.Action
}

func (r *recorder) emit(a model.Action) {
	r.actions = append(r.actions, a)
}

func newTestSource(bindings []model.Binding, clock *fakeClock) (*Source, *recorder) {
	rec := &recorder{}
	s := New(bindings, true, rec.emit, testLogger())
	s.guard = debounce.NewWithClock(DefaultRepeatGuard, clock.now)
	return s, rec
}

func press(s *Source, codes ...uint16) {
	for _, code := range codes {
		s.handleEvent(KeyEvent{Code: code, Pressed: true})
	}
}

func release(s *Source, codes ...uint16) {
	for _, code := range codes {
		s.handleEvent(KeyEvent{Code: code, Pressed: false})
	}
}

func defaultBindings() []model.Binding {
	return []model.Binding{
		{Action: model.ActionToggleStartStop, Combo: "ctrl+alt+1"},
		{Action: model.ActionNextRun, Combo: "ctrl+alt+2"},
	}
}

func TestCodeFromVK(t *testing.T) {
	cases := []struct {
		name  string
		vk    uint32
		flags uint32
		want  uint16
		ok    bool
	}{
		{"letter", vkA, 0, codeKEYA, true},
		{"enter", vkRETURN, 0, codeKEYEnter, true},
		{"keypad enter", vkRETURN, llkhfExtended, codeKEYKPEnter, true},
		{"generic shift", vkSHIFT, 0, codeKEYLeftShift, true},
		{"left ctrl", vkCONTROL, 0, codeKEYLeftCtrl, true},
		{"right ctrl", vkCONTROL, llkhfExtended, codeKEYRightCtrl, true},
		{"right alt", vkMENU, llkhfExtended, codeKEYRightAlt, true},
		{"unknown", 0xFF, 0, 0, false},
	}
	for _, tc := range cases {
		got, ok := codeFromVK(tc.vk, tc.flags)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: expected (%d, %v), got (%d, %v)", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}

func TestTokenForCode(t *testing.T) {
	cases := []struct {
		code  uint16
		token string
		ok    bool
	}{
		{codeKEY1, "1", true},
		{codeKEYKP1, "1", true},
		{codeKEYSpace, "space", true},
		{codeKEYKPEnter, "enter", true},
		{codeKEYSlash, "/", true},
		{codeKEYLeftCtrl, "", false},
		{999, "", false},
	}
	for _, tc := range cases {
		token, ok := tokenForCode(tc.code)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("code %d: expected (%q, %v), got (%q, %v)", tc.code, tc.token, tc.ok, token, ok)
		}
	}
}

func TestModifierForCode(t *testing.T) {
	pairs := map[uint16]combo.Modifier{
		codeKEYLeftCtrl:   combo.ModCtrl,
		codeKEYRightCtrl:  combo.ModCtrl,
		codeKEYLeftShift:  combo.ModShift,
		codeKEYRightShift: combo.ModShift,
		codeKEYLeftAlt:    combo.ModAlt,
		codeKEYRightAlt:   combo.ModAlt,
		codeKEYLeftMeta:   combo.ModCmd,
		codeKEYRightMeta:  combo.ModCmd,
		codeKEYA:          0,
	}
	for code, want := range pairs {
		if got := modifierForCode(code); got != want {
			t.Fatalf("code %d: expected %v, got %v", code, want, got)
		}
	}
}

func TestComboFires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	if len(rec.actions) != 1 || rec.actions[0] != model.ActionToggleStartStop {
		t.Fatalf("expected toggle_start_stop, got %v", rec.actions)
	}
}

func TestKeyWithoutModifiersDoesNotFire(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEY1)
	if len(rec.actions) != 0 {
		t.Fatalf("expected no action, got %v", rec.actions)
	}
}

func TestExtraHeldModifiersStillMatch(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEYLeftShift, codeKEY1)
	if len(rec.actions) != 1 {
		t.Fatalf("expected a superset of modifiers to match, got %v", rec.actions)
	}
}

func TestHeldKeyFiresOnce(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	clock.advance(2 * DefaultRepeatGuard)
	// A second down without a release is what the Windows hook reports
	// for auto-repeat.
	press(s, codeKEY1)
	if len(rec.actions) != 1 {
		t.Fatalf("expected held key to fire once, got %v", rec.actions)
	}

	release(s, codeKEY1)
	clock.advance(2 * DefaultRepeatGuard)
	press(s, codeKEY1)
	if len(rec.actions) != 2 {
		t.Fatalf("expected release to rearm the key, got %v", rec.actions)
	}
}

func TestRepeatGuardThrottlesPerAction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	release(s, codeKEY1)
	clock.advance(100 * time.Millisecond)
	press(s, codeKEY1)
	if len(rec.actions) != 1 {
		t.Fatalf("expected rapid re-press to be throttled, got %v", rec.actions)
	}
	if _, seen := s.fired["1"]; !seen {
		t.Fatal("expected throttled press to still mark the key as fired")
	}

	// A different action is not throttled by the first one.
	press(s, codeKEY2)
	if len(rec.actions) != 2 || rec.actions[1] != model.ActionNextRun {
		t.Fatalf("expected next_run despite the toggle guard, got %v", rec.actions)
	}

	release(s, codeKEY1)
	clock.advance(DefaultRepeatGuard + time.Millisecond)
	press(s, codeKEY1)
	if len(rec.actions) != 3 {
		t.Fatalf("expected press beyond the guard to fire, got %v", rec.actions)
	}
}

func TestReleasingLastModifierRearmsKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	release(s, codeKEYLeftCtrl)
	if len(s.fired) == 0 {
		t.Fatal("expected fired key to survive while alt is held")
	}
	release(s, codeKEYLeftAlt)
	if len(s.fired) != 0 {
		t.Fatal("expected releasing the last modifier to clear fired keys")
	}

	clock.advance(2 * DefaultRepeatGuard)
	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	if len(rec.actions) != 2 {
		t.Fatalf("expected rearmed combo to fire again, got %v", rec.actions)
	}
}

func TestFirstMatchingBindingWins(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource([]model.Binding{
		{Action: model.ActionToggleStartStop, Combo: "ctrl+alt+1"},
		{Action: model.ActionUndoLast, Combo: "ctrl+alt+1"},
	}, clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	if len(rec.actions) != 1 || rec.actions[0] != model.ActionToggleStartStop {
		t.Fatalf("expected the first binding to win, got %v", rec.actions)
	}
}

func TestRightSideModifiersCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYRightCtrl, codeKEYRightAlt, codeKEY1)
	if len(rec.actions) != 1 {
		t.Fatalf("expected right-side modifiers to match, got %v", rec.actions)
	}
}

func TestKeypadDigitMatches(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEYKP1)
	if len(rec.actions) != 1 || rec.actions[0] != model.ActionToggleStartStop {
		t.Fatalf("expected keypad 1 to match the digit binding, got %v", rec.actions)
	}
}

func TestReloadSwapsBindings(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource(defaultBindings(), clock)

	s.Reload([]model.Binding{
		{Action: model.ActionUndoLast, Combo: "ctrl+alt+1"},
	})
	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	if len(rec.actions) != 1 || rec.actions[0] != model.ActionUndoLast {
		t.Fatalf("expected reloaded binding, got %v", rec.actions)
	}
}

func TestInvalidBindingsAreSkipped(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	s, rec := newTestSource([]model.Binding{
		{Action: model.ActionToggleStartStop, Combo: "ctrl+alt"},
		{Action: model.ActionNextRun, Combo: ""},
	}, clock)

	if len(s.bindings) != 0 {
		t.Fatalf("expected no usable bindings, got %d", len(s.bindings))
	}
	press(s, codeKEYLeftCtrl, codeKEYLeftAlt, codeKEY1)
	if len(rec.actions) != 0 {
		t.Fatalf("expected no action, got %v", rec.actions)
	}
}

func TestStartDisabledRecordsReason(t *testing.T) {
	s := New(defaultBindings(), false, func(model.Action) {}, testLogger())
	s.Start()
	if s.Available() {
		t.Fatal("expected disabled hotkeys to be unavailable")
	}
	if s.Reason() != "keyboard hotkeys disabled in settings" {
		t.Fatalf("unexpected reason: %q", s.Reason())
	}
	s.Stop()
}
