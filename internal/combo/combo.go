// Package combo parses, normalizes, and renders key-combination strings.
package combo

import (
	"errors"
	"runtime"
	"strings"
)

// Modifier is a bitmask of modifier keys.
type Modifier uint8

// Modifier bits in canonical listing order.
const (
	ModCmd Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModShift
)

// Parse and Normalize errors.
var (
	ErrEmpty = errors.New("combo is empty")
	ErrNoKey = errors.New("combo has no key token")
)

var modOrder = []struct {
	bit  Modifier
	name string
}{
	{ModCmd, "cmd"},
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
}

var modNames = map[string]Modifier{
	"cmd":     ModCmd,
	"command": ModCmd,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
}

// shiftedDigits maps layout-shifted symbols for the digit row back to the
// digits 1-5 so combos keep matching regardless of shift state.
var shiftedDigits = map[string]string{
	"¡": "1",
	"™": "2",
	"£": "3",
	"¢": "4",
	"∞": "5",
}

// Has reports whether every bit of other is set in m.
func (m Modifier) Has(other Modifier) bool {
	return m&other == other
}

// With returns m with the bits of other added.
func (m Modifier) With(other Modifier) Modifier {
	return m | other
}

// Without returns m with the bits of other cleared.
func (m Modifier) Without(other Modifier) Modifier {
	return m &^ other
}

// String renders the modifier set in canonical order, "+"-joined.
func (m Modifier) String() string {
	parts := make([]string, 0, 4)
	for _, mod := range modOrder {
		if m.Has(mod.bit) {
			parts = append(parts, mod.name)
		}
	}
	return strings.Join(parts, "+")
}

// Combo is a parsed key combination: a modifier set plus one key token.
type Combo struct {
	Mods Modifier
	Key  string
}

// String renders the canonical form, e.g. "ctrl+alt+1".
func (c Combo) String() string {
	if c.Key == "" {
		return c.Mods.String()
	}
	if c.Mods == 0 {
		return c.Key
	}
	return c.Mods.String() + "+" + c.Key
}

// Matches reports whether a pressed key token under the given held
// modifiers satisfies this combo. The combo's modifiers must be a subset
// of the held set; extra held modifiers do not prevent a match.
func (c Combo) Matches(held Modifier, key string) bool {
	return held.Has(c.Mods) && c.Key == key
}

func tokenize(raw string) (Modifier, string) {
	var mods Modifier
	var key string
	for _, part := range strings.Split(raw, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if bit, ok := modNames[part]; ok {
			mods = mods.With(bit)
			continue
		}
		if digit, ok := shiftedDigits[part]; ok {
			part = digit
		}
		key = part
	}
	return mods, key
}

// Normalize rewrites a raw combo string into canonical form: lowercase,
// modifier synonyms mapped, modifiers deduplicated and canonically ordered,
// the key token moved to the end. Empty input normalizes to "" (unbound).
// A modifiers-only combo keeps its modifier string; Parse rejects it.
func Normalize(raw string) string {
	mods, key := tokenize(raw)
	return Combo{Mods: mods, Key: key}.String()
}

// Parse converts a raw combo string into a Combo. It fails with ErrEmpty
// when nothing remains after trimming and with ErrNoKey when only
// modifiers remain; modifiers alone never fire an action.
func Parse(raw string) (Combo, error) {
	mods, key := tokenize(raw)
	if mods == 0 && key == "" {
		return Combo{}, ErrEmpty
	}
	if key == "" {
		return Combo{}, ErrNoKey
	}
	return Combo{Mods: mods, Key: key}, nil
}

var darwinGlyphs = map[string]string{
	"cmd":   "⌘",
	"ctrl":  "⌃",
	"alt":   "⌥",
	"shift": "⇧",
}

var textLabels = map[string]string{
	"cmd":   "Win",
	"ctrl":  "Ctrl",
	"alt":   "Alt",
	"shift": "Shift",
}

// Label renders a combo for display on the current platform. The result
// is presentation only and never feeds back into matching.
func Label(raw string) string {
	return labelFor(runtime.GOOS, raw)
}

func labelFor(goos, raw string) string {
	norm := Normalize(raw)
	if norm == "" {
		return ""
	}
	parts := strings.Split(norm, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if goos == "darwin" {
			if glyph, ok := darwinGlyphs[p]; ok {
				out = append(out, glyph)
				continue
			}
			out = append(out, strings.ToUpper(p))
			continue
		}
		if label, ok := textLabels[p]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	if goos == "darwin" {
		return strings.Join(out, "")
	}
	return strings.Join(out, "+")
}
