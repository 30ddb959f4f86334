package control

import "fmt"

// Mode is what a gesture on the viewer does.
type Mode int

const (
	Idle Mode = iota
	DrawPoint
	Freehand
	Shape
	Move
	Scale
	Delete
)

var modeNames = [...]string{"idle", "point", "freehand", "shape", "move", "scale", "delete"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return Idle, fmt.Errorf("control: unknown mode %q", s)
}

// selects reports whether taps and drags in m pick existing annotations.
func (m Mode) selects() bool { return m == Move || m == Scale || m == Delete }
