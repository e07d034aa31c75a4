package instance

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
)

type scriptModel struct {
	mu     sync.Mutex
	steps  []games.InputSnapshot
	params []any
	fail   error
	hang   time.Duration
}

type scriptParams struct {
	Speed float64 `json:"speed" jsonschema:"minimum=0.1,maximum=10"`
	Mode  string  `json:"mode" jsonschema:"enum=a,enum=b"`
}

func (m *scriptModel) ViewportSize() (int, int) { return 8, 8 }
func (m *scriptModel) DefaultParams() any       { return &scriptParams{Speed: 1, Mode: "a"} }
func (m *scriptModel) Step(in games.InputSnapshot, p any) (games.Frame, error) {
	m.mu.Lock()
	fail, hang := m.fail, m.hang
	m.steps = append(m.steps, in)
	m.params = append(m.params, p)
	m.mu.Unlock()
	if hang > 0 {
		time.Sleep(hang)
	}
	if fail != nil {
		return games.Frame{}, fail
	}
	return games.Frame{RGBA: make([]byte, 8*8*4), Stride: 32, W: 8, H: 8}, nil
}
func (m *scriptModel) Close() error { return nil }

func (m *scriptModel) stepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

func waitSteps(t *testing.T, m *scriptModel, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for m.stepCount() < n {
		select {
		case <-deadline:
			t.Fatalf("only %d steps after 2s, want %d", m.stepCount(), n)
		case <-time.After(time.Millisecond):
		}
	}
}

func conf() config.Instance {
	return config.Instance{Fps: 100, StepTimeout: time.Second}
}

func TestInputCoalescing(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())

	in.KeyDown(65)
	in.KeyDown(65) // repeat of a held key, dropped
	in.MouseMove(3, -1)
	in.MouseMove(2, 4)
	in.Start()
	defer in.Stop()
	waitSteps(t, m, 1)

	m.mu.Lock()
	first := m.steps[0]
	m.mu.Unlock()
	if len(first.Events) != 3 {
		t.Errorf("got %d events, want keydown + 2 mousemoves: %+v", len(first.Events), first.Events)
	}
	if !first.IsPressed(65) {
		t.Error("key 65 not held")
	}
	if first.MouseDX != 5 || first.MouseDY != 3 {
		t.Errorf("mouse deltas %d,%d want 5,3", first.MouseDX, first.MouseDY)
	}
}

func TestKeyUpOrdering(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())
	in.Start()
	defer in.Stop()
	waitSteps(t, m, 1)

	in.KeyDown(65)
	in.KeyUp(65)
	waitSteps(t, m, m.stepCount()+2)

	var downAt, upAt = -1, -1
	m.mu.Lock()
	for si, s := range m.steps {
		for _, e := range s.Events {
			if e.Code != 65 {
				continue
			}
			if e.Kind == games.KeyDown {
				downAt = si
			} else if e.Kind == games.KeyUp {
				upAt = si
			}
		}
	}
	m.mu.Unlock()
	if downAt == -1 || upAt == -1 {
		t.Fatalf("events lost: down@%d up@%d", downAt, upAt)
	}
	if upAt < downAt {
		t.Errorf("keyup at step %d before keydown at step %d", upAt, downAt)
	}
}

func TestUnmatchedKeyUpDropped(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())
	in.KeyUp(65)
	in.Start()
	defer in.Stop()
	waitSteps(t, m, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.steps[0].Events {
		if e.Kind == games.KeyUp {
			t.Errorf("keyup for unheld key delivered: %+v", e)
		}
	}
}

func TestParamsSwapBetweenSteps(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())
	in.Start()
	defer in.Stop()
	waitSteps(t, m, 1)

	if err := in.UpdateParams(map[string]any{"speed": 2.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	waitSteps(t, m, m.stepCount()+2)

	m.mu.Lock()
	last := m.params[len(m.params)-1].(*scriptParams)
	m.mu.Unlock()
	if last.Speed != 2 || last.Mode != "a" {
		t.Errorf("params after swap: %+v", last)
	}
}

func TestParamsRejectedWholesale(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())
	in.Start()
	defer in.Stop()
	waitSteps(t, m, 1)

	err := in.UpdateParams(map[string]any{"speed": 3.0, "mode": "z"})
	if err == nil {
		t.Fatal("invalid patch accepted")
	}
	waitSteps(t, m, m.stepCount()+2)

	m.mu.Lock()
	last := m.params[len(m.params)-1].(*scriptParams)
	m.mu.Unlock()
	if last.Speed != 1 || last.Mode != "a" {
		t.Errorf("rejected patch leaked into params: %+v", last)
	}
}

func TestStepErrorStopsLoop(t *testing.T) {
	m := &scriptModel{fail: errors.New("model fell over")}
	stopped := make(chan error, 1)
	in := New(m, conf(), func(err error) { stopped <- err }, logger.Default())
	in.Start()

	select {
	case err := <-stopped:
		if err == nil {
			t.Fatal("nil error on abnormal stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop survived a failing step")
	}
	in.Stop()
	if in.State() != Stopped {
		t.Errorf("state %v after stop", in.State())
	}
}

func TestStepTimeoutStopsLoop(t *testing.T) {
	m := &scriptModel{hang: time.Second}
	c := conf()
	c.StepTimeout = 20 * time.Millisecond
	stopped := make(chan error, 1)
	in := New(m, c, func(err error) { stopped <- err }, logger.Default())
	in.Start()
	defer in.Stop()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hung step not detected")
	}
}

func TestFramesReachCallback(t *testing.T) {
	m := &scriptModel{}
	in := New(m, conf(), nil, logger.Default())
	frames := make(chan games.Frame, 8)
	in.SetOnFrame(func(f games.Frame) {
		select {
		case frames <- f:
		default:
		}
	})
	in.Start()
	defer in.Stop()

	select {
	case f := <-frames:
		if f.W != 8 || f.H != 8 {
			t.Errorf("frame %dx%d", f.W, f.H)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}
}
