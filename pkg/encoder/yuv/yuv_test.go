package yuv

import "testing"

func solid(w, h int, r, g, b byte) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = r, g, b, 0xff
	}
	return buf
}

func TestI420Size(t *testing.T) {
	c := NewConv(16, 8)
	out := c.Process(solid(16, 8, 0, 0, 0), 16*4)
	if len(out) != 16*8*3/2 {
		t.Fatalf("i420 size %d, want %d", len(out), 16*8*3/2)
	}
}

func TestKnownColors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		r, g, b byte
		y, u, v byte
	}{
		{"black", 0, 0, 0, 16, 128, 128},
		{"white", 255, 255, 255, 235, 128, 128},
		{"red", 255, 0, 0, 81, 90, 239},
	} {
		c := NewConv(4, 4)
		out := c.Process(solid(4, 4, tc.r, tc.g, tc.b), 16)
		y, u, v := out[0], out[16], out[20]
		if y != tc.y || u != tc.u || v != tc.v {
			t.Errorf("%s: yuv %d,%d,%d want %d,%d,%d", tc.name, y, u, v, tc.y, tc.u, tc.v)
		}
	}
}

func TestBufferReused(t *testing.T) {
	c := NewConv(4, 4)
	a := c.Process(solid(4, 4, 10, 20, 30), 16)
	b := c.Process(solid(4, 4, 200, 100, 50), 16)
	if &a[0] != &b[0] {
		t.Error("conversion allocated a new buffer")
	}
}
