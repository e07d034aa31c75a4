package session

import (
	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/encoder"
	"github.com/oneirogames/oneiro/pkg/encoder/h264"
	"github.com/oneirogames/oneiro/pkg/logger"
)

// NewVideoCodec returns a factory producing one x264 pipeline per
// session, sized to the game's viewport.
func NewVideoCodec(conf config.Encoder, log *logger.Logger) CodecFactory {
	return func(w, h int) (VideoEncoder, error) {
		codec, err := h264.NewEncoder(w, h, &h264.Options{
			Crf:      conf.Video.H264.Crf,
			Preset:   conf.Video.H264.Preset,
			Profile:  conf.Video.H264.Profile,
			Tune:     conf.Video.H264.Tune,
			LogLevel: int32(conf.Video.H264.LogLevel),
		})
		if err != nil {
			return nil, err
		}
		return encoder.NewVideoEncoder(codec, w, h, log), nil
	}
}
