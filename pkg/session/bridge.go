package session

import (
	"encoding/json"

	"github.com/oneirogames/oneiro/pkg/api"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/monitoring"
)

// handleMessage routes one data channel blob. Every message counts as
// liveness, a heartbeat does nothing else. Messages that do not parse
// are dropped, a hostile or buggy client must not kill the session.
func (s *Session) handleMessage(data []byte) {
	var msg api.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Debug().Err(err).Msg("Undecodable control message")
		return
	}
	s.Touch()

	if s.State() != Active {
		return
	}
	switch msg.Type {
	case api.Heartbeat:
	case api.KeyDown:
		s.inst.KeyDown(msg.Key)
	case api.KeyUp:
		s.inst.KeyUp(msg.Key)
	case api.MouseMove:
		s.inst.MouseMove(msg.MovementX, msg.MovementY)
	case api.MouseDown:
		s.inst.MouseDown(msg.Button)
	case api.MouseUp:
		s.inst.MouseUp(msg.Button)
	default:
		s.log.Debug().Msgf("Unknown control message type [%v]", msg.Type)
	}
}

// publishFrame encodes one RGBA frame and ships it to the peer. Send
// failures are logged and dropped, the stepping loop never blocks on
// the network.
func (s *Session) publishFrame(f games.Frame) {
	if s.State() != Active {
		return
	}
	data := s.video.Encode(f.RGBA, f.Stride)
	if data == nil {
		return
	}
	if err := s.transport.SendVideo(data, s.frameDur); err != nil {
		monitoring.FramesDropped.Inc()
		s.log.Debug().Err(err).Msg("Video sample dropped")
	}
}
