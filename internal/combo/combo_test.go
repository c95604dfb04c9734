package combo

import (
	"errors"
	"testing"
)

func TestNormalizeCanonicalForm(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Ctrl+Alt+1", "ctrl+alt+1"},
		{"alt+ctrl+1", "ctrl+alt+1"},
		{"Command+Option+3", "cmd+alt+3"},
		{"option+command+3", "cmd+alt+3"},
		{"control+shift+F5", "ctrl+shift+f5"},
		{"ctrl+control+c", "ctrl+c"},
		{" ctrl + alt + 2 ", "ctrl+alt+2"},
		{"x", "x"},
		{"", ""},
		{"  ", ""},
		{"ctrl+alt", "ctrl+alt"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.raw); got != tc.want {
			t.Fatalf("Normalize(%q): expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}

func TestNormalizeShiftedSymbols(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"cmd+alt+¡", "cmd+alt+1"},
		{"cmd+alt+™", "cmd+alt+2"},
		{"cmd+alt+£", "cmd+alt+3"},
		{"cmd+alt+¢", "cmd+alt+4"},
		{"cmd+alt+∞", "cmd+alt+5"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.raw); got != tc.want {
			t.Fatalf("Normalize(%q): expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}

func TestParseOrderInsensitive(t *testing.T) {
	a, err := Parse("Ctrl+Alt+1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Parse("alt+ctrl+1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal combos, got %+v and %+v", a, b)
	}
	if a.Mods != ModCtrl.With(ModAlt) {
		t.Fatalf("unexpected modifier set: %v", a.Mods)
	}
	if a.Key != "1" {
		t.Fatalf("expected key %q, got %q", "1", a.Key)
	}
}

func TestParseRejectsModifiersOnly(t *testing.T) {
	if _, err := Parse("ctrl+alt"); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if _, err := Parse("shift"); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Parse(" + "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestMatchesModifierSubset(t *testing.T) {
	c, err := Parse("ctrl+alt+2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Matches(ModCtrl.With(ModAlt), "2") {
		t.Fatalf("expected match with exact modifiers")
	}
	if !c.Matches(ModCtrl.With(ModAlt).With(ModShift), "2") {
		t.Fatalf("expected match with extra held modifier")
	}
	if c.Matches(ModCtrl, "2") {
		t.Fatalf("expected no match with missing modifier")
	}
	if c.Matches(ModCtrl.With(ModAlt), "3") {
		t.Fatalf("expected no match with wrong key")
	}
}

func TestModifierStringOrder(t *testing.T) {
	m := ModShift.With(ModCmd).With(ModCtrl)
	if got := m.String(); got != "cmd+ctrl+shift" {
		t.Fatalf("expected %q, got %q", "cmd+ctrl+shift", got)
	}
}

func TestLabelByPlatform(t *testing.T) {
	if got := labelFor("darwin", "cmd+alt+1"); got != "⌘⌥1" {
		t.Fatalf("unexpected darwin label: %q", got)
	}
	if got := labelFor("linux", "ctrl+alt+1"); got != "Ctrl+Alt+1" {
		t.Fatalf("unexpected linux label: %q", got)
	}
	if got := labelFor("linux", "cmd+shift+f5"); got != "Win+Shift+F5" {
		t.Fatalf("unexpected linux label: %q", got)
	}
	if got := labelFor("linux", ""); got != "" {
		t.Fatalf("expected empty label, got %q", got)
	}
}
