package pad

// DeviceInfo describes one detected controller for listings.
type DeviceInfo struct {
	Index   int
	Name    string
	Path    string
	Hats    int
	Buttons int
	Axes    int
}

// Device is a polled view of one controller. Poll refreshes cached state
// from the kernel queue; the accessors read the cache. Hats and buttons
// are addressed by index in code order, matching common joystick layers.
type Device interface {
	Name() string
	NumHats() int
	NumButtons() int
	NumAxes() int
	Poll() error
	// Hat reports the hat position with y positive upward, so up is (0, 1).
	Hat(index int) (x, y int, err error)
	Button(index int) (bool, error)
	// Axis reports a value normalized to [-1, 1].
	Axis(index int) (float64, error)
	Close() error
}

// xinputReader reads the XInput gamepad button word where available.
type xinputReader interface {
	poll() (buttons uint16, ok bool)
}
