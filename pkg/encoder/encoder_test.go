package encoder

import (
	"testing"

	"github.com/oneirogames/oneiro/pkg/logger"
)

type fakeCodec struct {
	loaded   [][]byte
	out      []byte
	refresh  int
	shutdown int
}

func (c *fakeCodec) LoadBuf(in []byte) { c.loaded = append(c.loaded, in) }
func (c *fakeCodec) Encode() []byte    { return c.out }
func (c *fakeCodec) IntraRefresh()     { c.refresh++ }
func (c *fakeCodec) SetFlip(bool)      {}
func (c *fakeCodec) Shutdown() error   { c.shutdown++; return nil }

func rgbaFrame(w, h int) []byte { return make([]byte, w*h*4) }

func TestEncodePassesI420(t *testing.T) {
	codec := &fakeCodec{out: []byte{0, 0, 0, 1}}
	v := NewVideoEncoder(codec, 16, 8, logger.Default())

	out := v.Encode(rgbaFrame(16, 8), 16*4)
	if out == nil {
		t.Fatal("no output")
	}
	if len(codec.loaded) != 1 || len(codec.loaded[0]) != 16*8*3/2 {
		t.Errorf("codec fed %d bytes, want i420 plane set", len(codec.loaded[0]))
	}
}

func TestEncodeEmptyOutputIsNil(t *testing.T) {
	codec := &fakeCodec{}
	v := NewVideoEncoder(codec, 4, 4, logger.Default())
	if out := v.Encode(rgbaFrame(4, 4), 16); out != nil {
		t.Errorf("buffered frame produced output: %v", out)
	}
}

func TestStopBlocksFurtherFrames(t *testing.T) {
	codec := &fakeCodec{out: []byte{1}}
	v := NewVideoEncoder(codec, 4, 4, logger.Default())
	v.Stop()
	if codec.shutdown != 1 {
		t.Error("codec not shut down")
	}
	if out := v.Encode(rgbaFrame(4, 4), 16); out != nil {
		t.Error("encode after stop produced output")
	}
}

func TestForceKeyframe(t *testing.T) {
	codec := &fakeCodec{}
	v := NewVideoEncoder(codec, 4, 4, logger.Default())
	v.ForceKeyframe()
	if codec.refresh != 1 {
		t.Error("intra refresh not requested")
	}
}
