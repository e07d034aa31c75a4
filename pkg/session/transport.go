package session

import (
	"context"
	"time"

	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/network/webrtc"
	pion "github.com/pion/webrtc/v4"
)

// peerTransport adapts a WebRTC peer to the Transport interface.
type peerTransport struct {
	peer    *webrtc.Peer
	factory *webrtc.ApiFactory
}

// NewPeerTransport returns a factory producing WebRTC-backed
// transports from a shared pion API.
func NewPeerTransport(factory *webrtc.ApiFactory, log *logger.Logger) TransportFactory {
	return func() Transport {
		return &peerTransport{peer: webrtc.New(log), factory: factory}
	}
}

func (t *peerTransport) Answer(ctx context.Context, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	return t.peer.Answer(ctx, t.factory, offer)
}

func (t *peerTransport) SendVideo(data []byte, duration time.Duration) error {
	return t.peer.SendVideo(data, duration)
}

func (t *peerTransport) SetOnMessage(fn func(data []byte)) { t.peer.OnMessage = fn }
func (t *peerTransport) SetOnClose(fn func())              { t.peer.OnClose = fn }
func (t *peerTransport) Disconnect()                       { t.peer.Disconnect() }
