package games

// Model is one loaded game model bound to a single session.
// Implementations are not required to be safe for concurrent use:
// the stepping loop is the only caller of Step, and params are
// swapped atomically between steps by the owner.
type Model interface {
	// ViewportSize returns the pixel dimensions of produced frames.
	ViewportSize() (w, h int)
	// DefaultParams returns a pointer to the model's parameter struct
	// with default values set. The struct defines the schema of the
	// game's runtime parameters through its json/jsonschema tags.
	DefaultParams() any
	// Step produces exactly one frame from the given input snapshot
	// and the current parameter values.
	Step(in InputSnapshot, params any) (Frame, error)
	// Close releases the model resources (GPU weights).
	Close() error
}

// Frame is a single rendered frame. Ownership is transient: the
// buffer is handed to the transport for encoding and never retained.
type Frame struct {
	RGBA   []byte
	Stride int
	W, H   int
}

type EventKind uint8

const (
	KeyDown EventKind = iota
	KeyUp
	MouseMove
	MouseDown
	MouseUp
)

// InputEvent is a single decoded control event.
type InputEvent struct {
	Kind   EventKind
	Code   int // key code or mouse button
	DX, DY int // mouse motion deltas
}

// InputSnapshot is the controller state visible to one step.
// Discrete edges keep their arrival order in Events, while held
// keys/buttons and mouse motion are coalesced.
type InputSnapshot struct {
	Events  []InputEvent
	Pressed []int
	Buttons []int
	MouseDX int
	MouseDY int
}

func (s *InputSnapshot) IsPressed(code int) bool {
	for _, k := range s.Pressed {
		if k == code {
			return true
		}
	}
	return false
}
