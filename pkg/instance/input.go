package instance

import (
	"sync"

	"github.com/oneirogames/oneiro/pkg/games"
)

// inputBuffer coalesces control events between steps. Key state
// follows the browser model: a repeat keydown for a held key and a
// keyup for an unheld key are both dropped, mouse motion adds up.
type inputBuffer struct {
	mu      sync.Mutex
	events  []games.InputEvent
	pressed map[int]struct{}
	buttons map[int]struct{}
	dx, dy  int
}

func newInputBuffer() *inputBuffer {
	return &inputBuffer{
		pressed: make(map[int]struct{}),
		buttons: make(map[int]struct{}),
	}
}

func (b *inputBuffer) KeyDown(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, held := b.pressed[code]; held {
		return
	}
	b.pressed[code] = struct{}{}
	b.events = append(b.events, games.InputEvent{Kind: games.KeyDown, Code: code})
}

func (b *inputBuffer) KeyUp(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, held := b.pressed[code]; !held {
		return
	}
	delete(b.pressed, code)
	b.events = append(b.events, games.InputEvent{Kind: games.KeyUp, Code: code})
}

func (b *inputBuffer) MouseMove(dx, dy int) {
	b.mu.Lock()
	b.dx += dx
	b.dy += dy
	b.events = append(b.events, games.InputEvent{Kind: games.MouseMove, DX: dx, DY: dy})
	b.mu.Unlock()
}

func (b *inputBuffer) MouseDown(button int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, held := b.buttons[button]; held {
		return
	}
	b.buttons[button] = struct{}{}
	b.events = append(b.events, games.InputEvent{Kind: games.MouseDown, Code: button})
}

func (b *inputBuffer) MouseUp(button int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, held := b.buttons[button]; !held {
		return
	}
	delete(b.buttons, button)
	b.events = append(b.events, games.InputEvent{Kind: games.MouseUp, Code: button})
}

// Snapshot hands the coalesced events to the step and starts a fresh
// accumulation window. Held keys and buttons carry over.
func (b *inputBuffer) Snapshot() games.InputSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := games.InputSnapshot{
		Events:  b.events,
		Pressed: keys(b.pressed),
		Buttons: keys(b.buttons),
		MouseDX: b.dx,
		MouseDY: b.dy,
	}
	b.events = nil
	b.dx, b.dy = 0, 0
	return snap
}

func keys(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
