// Package pad polls a game controller's D-pad and emits timer actions.
package pad

import (
	"fmt"

	"github.com/verte-zerg/runtally/internal/model"
)

// XInput D-pad button masks from XINPUT_GAMEPAD.
const (
	xinputDpadUp    uint16 = 0x0001
	xinputDpadDown  uint16 = 0x0002
	xinputDpadLeft  uint16 = 0x0004
	xinputDpadRight uint16 = 0x0008
)

// directionFromHat maps an SDL-convention hat value to a direction.
// Diagonals and the centered position map to DirNone.
func directionFromHat(x, y int) model.Direction {
	switch {
	case x == 0 && y == 1:
		return model.DirUp
	case x == 1 && y == 0:
		return model.DirRight
	case x == 0 && y == -1:
		return model.DirDown
	case x == -1 && y == 0:
		return model.DirLeft
	}
	return model.DirNone
}

// quantizeAxis collapses a normalized axis value to -1, 0, or 1 with a
// dead zone of 0.5 on either side.
func quantizeAxis(v float64) int {
	switch {
	case v < -0.5:
		return -1
	case v > 0.5:
		return 1
	}
	return 0
}

// directionFromAxes maps a quantized axis pair to a direction. Axis y is
// negative upward, so (0,-1) is up.
func directionFromAxes(x, y float64) model.Direction {
	qx, qy := quantizeAxis(x), quantizeAxis(y)
	switch {
	case qx == 0 && qy == -1:
		return model.DirUp
	case qx == 1 && qy == 0:
		return model.DirRight
	case qx == 0 && qy == 1:
		return model.DirDown
	case qx == -1 && qy == 0:
		return model.DirLeft
	}
	return model.DirNone
}

// guessButtonMap returns the D-pad button layout for pads that expose the
// D-pad as plain buttons. Common Xbox-style layouts put it on buttons
// 11 through 14 and carry at least 15 buttons overall.
func guessButtonMap(numButtons int) map[int]model.Direction {
	if numButtons < 15 {
		return nil
	}
	return map[int]model.Direction{
		11: model.DirUp,
		12: model.DirDown,
		13: model.DirLeft,
		14: model.DirRight,
	}
}

// guessAxisPair returns the axis indexes for drivers that expose the D-pad
// as a discrete axis pair. Windows drivers commonly use axes 6 and 7 on
// pads with at least 8 axes.
func guessAxisPair(numAxes int) (x, y int, ok bool) {
	if numAxes < 8 {
		return 0, 0, false
	}
	return 6, 7, true
}

// DpadSources names the reading strategies the poller would engage for a
// device with the given capability counts. Used by device listings.
func DpadSources(hats, buttons, axes, hatIndex int) []string {
	var out []string
	if hats > hatIndex {
		out = append(out, fmt.Sprintf("hat %d", hatIndex))
	}
	if guessButtonMap(buttons) != nil {
		out = append(out, "buttons 11-14")
	}
	if x, y, ok := guessAxisPair(axes); ok {
		out = append(out, fmt.Sprintf("axes %d/%d", x, y))
	}
	return out
}

// buttonDirection resolves newly pressed button indexes to a direction.
// Indexes must be sorted ascending; the lowest mapped one wins.
func buttonDirection(newlyPressed []int, buttonMap map[int]model.Direction) model.Direction {
	for _, idx := range newlyPressed {
		if dir, ok := buttonMap[idx]; ok {
			return dir
		}
	}
	return model.DirNone
}

// xinputDirection resolves newly set XInput button bits to a direction.
func xinputDirection(newlyPressed uint16) model.Direction {
	masks := []struct {
		mask uint16
		dir  model.Direction
	}{
		{xinputDpadUp, model.DirUp},
		{xinputDpadRight, model.DirRight},
		{xinputDpadDown, model.DirDown},
		{xinputDpadLeft, model.DirLeft},
	}
	for _, m := range masks {
		if newlyPressed&m.mask != 0 {
			return m.dir
		}
	}
	return model.DirNone
}
