// Package synth is a procedural frame generator used as the built-in
// engine. It renders a plasma field driven by held keys and mouse
// movement, which makes latency and input plumbing visible end to end.
package synth

import (
	"fmt"
	"math"

	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/os"
)

const Engine = "synth"

const (
	width  = 640
	height = 360
)

// JS keyCodes the renderer reacts to.
const (
	keyLeft  = 37
	keyUp    = 38
	keyRight = 39
	keyDown  = 40
)

type Params struct {
	Speed   float64 `json:"speed" jsonschema:"minimum=0.1,maximum=10,default=1"`
	Zoom    float64 `json:"zoom" jsonschema:"minimum=0.5,maximum=4,default=1"`
	Palette string  `json:"palette" jsonschema:"enum=fire,enum=ocean,enum=mono,default=fire"`
	Trails  bool    `json:"trails"`
}

type Synth struct {
	buf  []byte
	t    float64
	offX float64
	offY float64
	log  *logger.Logger
}

func New(desc games.Descriptor, log *logger.Logger) (games.Model, error) {
	if w := desc.WeightsPath(); w != "" && !os.Exists(w) {
		return nil, fmt.Errorf("weights file %v not found", w)
	}
	return &Synth{
		buf: make([]byte, width*height*4),
		log: log,
	}, nil
}

func (s *Synth) ViewportSize() (int, int) { return width, height }

func (s *Synth) DefaultParams() any {
	return &Params{Speed: 1, Zoom: 1, Palette: "fire"}
}

func (s *Synth) Step(in games.InputSnapshot, params any) (games.Frame, error) {
	p, ok := params.(*Params)
	if !ok {
		return games.Frame{}, fmt.Errorf("unexpected params type %T", params)
	}

	s.t += 0.03 * p.Speed
	if in.IsPressed(keyLeft) {
		s.offX -= 2
	}
	if in.IsPressed(keyRight) {
		s.offX += 2
	}
	if in.IsPressed(keyUp) {
		s.offY -= 2
	}
	if in.IsPressed(keyDown) {
		s.offY += 2
	}
	s.offX += float64(in.MouseDX) * 0.5
	s.offY += float64(in.MouseDY) * 0.5

	stride := width * 4
	scale := 0.02 / p.Zoom
	for y := 0; y < height; y++ {
		fy := (float64(y) + s.offY) * scale
		row := s.buf[y*stride:]
		for x := 0; x < width; x++ {
			fx := (float64(x) + s.offX) * scale
			v := math.Sin(fx+s.t) + math.Sin(fy+s.t*0.7) +
				math.Sin(math.Sqrt(fx*fx+fy*fy)+s.t*1.3)
			r, g, b := shade(p.Palette, v)
			i := x * 4
			if p.Trails {
				row[i] = row[i]/2 + r/2
				row[i+1] = row[i+1]/2 + g/2
				row[i+2] = row[i+2]/2 + b/2
			} else {
				row[i], row[i+1], row[i+2] = r, g, b
			}
			row[i+3] = 0xff
		}
	}
	return games.Frame{RGBA: s.buf, Stride: stride, W: width, H: height}, nil
}

func (s *Synth) Close() error { return nil }

// shade maps a plasma value in [-3, 3] to a palette color.
func shade(palette string, v float64) (byte, byte, byte) {
	c := byte((v + 3) / 6 * 255)
	switch palette {
	case "ocean":
		return c / 4, c / 2, c
	case "mono":
		return c, c, c
	default:
		return c, c / 3, c / 8
	}
}
