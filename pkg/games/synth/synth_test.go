package synth

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
)

func newTestSynth(t *testing.T) games.Model {
	t.Helper()
	log := logger.Default()
	m, err := New(games.Descriptor{Type: "synth", Id: "test"}, log)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return m
}

func TestMissingWeights(t *testing.T) {
	desc := games.Descriptor{Type: "synth", Id: "test", Weights: "nope.safetensors"}
	desc.SetDir(filepath.Join(t.TempDir(), "test"))
	if _, err := New(desc, logger.Default()); err == nil {
		t.Fatal("missing weights not reported")
	}
}

func TestStepProducesFrame(t *testing.T) {
	m := newTestSynth(t)
	defer m.Close()

	f, err := m.Step(games.InputSnapshot{}, m.DefaultParams())
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	w, h := m.ViewportSize()
	if f.W != w || f.H != h || len(f.RGBA) != w*h*4 {
		t.Errorf("frame geometry off: %dx%d stride %d len %d", f.W, f.H, f.Stride, len(f.RGBA))
	}
}

func TestInputMovesField(t *testing.T) {
	a := newTestSynth(t)
	b := newTestSynth(t)
	defer a.Close()
	defer b.Close()

	pa := a.DefaultParams()
	pb := b.DefaultParams()
	fa, _ := a.Step(games.InputSnapshot{}, pa)
	still := append([]byte(nil), fa.RGBA...)
	fb, _ := b.Step(games.InputSnapshot{Pressed: []int{39}}, pb)
	if bytes.Equal(still, fb.RGBA) {
		t.Error("held key had no effect on the frame")
	}
}

func TestBadParamsType(t *testing.T) {
	m := newTestSynth(t)
	defer m.Close()
	if _, err := m.Step(games.InputSnapshot{}, struct{}{}); err == nil {
		t.Fatal("wrong params type accepted")
	}
}
