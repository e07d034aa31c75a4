// Package encoder turns raw RGBA frames into compressed video
// samples for the transport track.
package encoder

import (
	"sync"
	"sync/atomic"

	"github.com/oneirogames/oneiro/pkg/encoder/yuv"
	"github.com/oneirogames/oneiro/pkg/logger"
)

type Encoder interface {
	LoadBuf(input []byte)
	Encode() []byte
	IntraRefresh()
	SetFlip(bool)
	Shutdown() error
}

type VideoCodec string

const H264 VideoCodec = "h264"

type Video struct {
	codec   Encoder
	log     *logger.Logger
	stopped atomic.Bool
	y       *yuv.Conv
	mu      sync.Mutex
}

func NewVideoEncoder(codec Encoder, w, h int, log *logger.Logger) *Video {
	return &Video{codec: codec, y: yuv.NewConv(w, h), log: log}
}

// Encode compresses one RGBA frame. A nil result means the codec
// buffered the frame and produced no output yet.
func (v *Video) Encode(rgba []byte, stride int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped.Load() {
		return nil
	}

	yCbCr := v.y.Process(rgba, stride)
	v.codec.LoadBuf(yCbCr)

	if bytes := v.codec.Encode(); len(bytes) > 0 {
		return bytes
	}
	return nil
}

// ForceKeyframe asks the codec to emit an IDR on the next frame.
func (v *Video) ForceKeyframe() {
	v.mu.Lock()
	v.codec.IntraRefresh()
	v.mu.Unlock()
}

func (v *Video) Stop() {
	v.stopped.Store(true)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.codec.Shutdown(); err != nil {
		v.log.Error().Err(err).Msg("failed to close the encoder")
	}
}
