package boop

// FieldState is the state of a Field's state machine.
type FieldState uint8

const (
	Uninitialized FieldState = iota
	Direct
	Springing
)

func (s FieldState) String() string {
	switch s {
	case Direct:
		return "direct"
	case Springing:
		return "springing"
	default:
		return "uninitialized"
	}
}

// Field smooths one scalar. The zero value is Uninitialized.
type Field struct {
	state  FieldState
	value  float64
	spring SpringState
}

// State returns the current state.
func (f *Field) State() FieldState {
	return f.state
}

// Spring returns the spring state. Meaningful only while Springing.
func (f *Field) Spring() SpringState {
	return f.spring
}

// Step feeds target observed at time now and returns the smoothed value.
// weird reports a divergence that was recovered during this step.
func (f *Field) Step(conf Config, path string, now, target float64) (float64, bool) {
	if conf.Reset {
		f.direct(target)
		return target, false
	}

	kind := conf.FilterFor(path)
	if kind.IsNoop() {
		f.direct(target)
		return target, false
	}

	switch f.state {
	case Uninitialized:
		f.state = Springing
		f.spring = NewSpringState(target, now)
		return target, false
	case Direct:
		// Spring away from where the field was last shown.
		f.state = Springing
		f.spring = NewSpringState(f.value, now)
		return f.value, false
	}

	if now < f.spring.PrevTime {
		// Time went backwards (seek or restart): start over at the target.
		f.spring = NewSpringState(target, now)
		return target, false
	}

	fr, z, r := kind.Params()
	return f.spring.Step(fr, z, r, now, target)
}

func (f *Field) direct(target float64) {
	f.state = Direct
	f.value = target
	f.spring = SpringState{}
}

// Reset returns the field to Uninitialized.
func (f *Field) Reset() {
	*f = Field{}
}
