package params

import (
	"errors"
	"testing"
)

type testParams struct {
	Speed   float64 `json:"speed" jsonschema:"minimum=0.1,maximum=10,default=1"`
	Seed    int     `json:"seed" jsonschema:"minimum=0"`
	Palette string  `json:"palette" jsonschema:"enum=fire,enum=ocean,enum=mono,default=fire"`
	Trails  bool    `json:"trails"`
}

func defaults() *testParams {
	return &testParams{Speed: 1, Seed: 42, Palette: "fire"}
}

func TestApplyMerges(t *testing.T) {
	out, err := Apply(defaults(), map[string]any{"speed": 2.5, "trails": true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	p := out.(*testParams)
	if p.Speed != 2.5 || !p.Trails {
		t.Errorf("patch not applied: %+v", p)
	}
	if p.Seed != 42 || p.Palette != "fire" {
		t.Errorf("untouched fields changed: %+v", p)
	}
}

func TestApplyAllOrNothing(t *testing.T) {
	cur := defaults()
	out, err := Apply(cur, map[string]any{"speed": 3.0, "palette": "neon"})
	if out != nil {
		t.Fatal("partial apply returned a value")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["palette"]; !ok {
		t.Errorf("palette not flagged: %v", verr.Fields)
	}
	if _, ok := verr.Fields["speed"]; ok {
		t.Errorf("valid field flagged: %v", verr.Fields)
	}
	if cur.Speed != 1 {
		t.Error("current mutated on failed apply")
	}
}

func TestApplyBounds(t *testing.T) {
	for _, patch := range []map[string]any{
		{"speed": 0.01},
		{"speed": 11.0},
		{"seed": -1.0},
		{"seed": 1.5},
		{"trails": "yes"},
		{"unknown": 1.0},
	} {
		if _, err := Apply(defaults(), patch); err == nil {
			t.Errorf("patch %v accepted", patch)
		}
	}
}

func TestApplyRejectsStringNumbers(t *testing.T) {
	for _, patch := range []map[string]any{
		{"speed": "3.5"},
		{"seed": "7"},
	} {
		_, err := Apply(defaults(), patch)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("patch %v: want ValidationError, got %v", patch, err)
		}
	}
}

func TestSchemaShape(t *testing.T) {
	s := Schema(defaults())
	speed, ok := s.Properties.Get("speed")
	if !ok {
		t.Fatal("speed missing from schema")
	}
	if speed.Type != "number" || speed.Minimum != "0.1" {
		t.Errorf("speed schema off: type=%s min=%s", speed.Type, speed.Minimum)
	}
	pal, ok := s.Properties.Get("palette")
	if !ok || len(pal.Enum) != 3 {
		t.Errorf("palette enum off: %+v", pal)
	}
}
