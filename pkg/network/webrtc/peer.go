// Package webrtc bridges one session to its browser peer: a video
// track for frames and a client-created data channel for control.
package webrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/pion/webrtc/v4/pkg/media"

	pion "github.com/pion/webrtc/v4"
)

var ErrNotConnected = errors.New("peer is not connected")

type Peer struct {
	conn  *pion.PeerConnection
	video *pion.TrackLocalStaticSample
	log   *logger.Logger

	dmu sync.Mutex
	dc  *pion.DataChannel

	OnMessage func(data []byte)

	closeOnce sync.Once
	OnClose   func()
}

func New(log *logger.Logger) *Peer {
	return &Peer{log: log.Extend(log.With().Str("m", "webrtc"))}
}

// Answer runs the server side of the negotiation: it takes the
// browser's offer and returns a non-trickle answer with every ICE
// candidate already gathered. The data channel is the browser's to
// open, we only wait for it.
func (p *Peer) Answer(ctx context.Context, factory *ApiFactory, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	conn, err := factory.NewPeer()
	if err != nil {
		return nil, err
	}
	p.conn = conn

	video, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeH264}, "video", "game-video")
	if err != nil {
		p.Disconnect()
		return nil, err
	}
	if _, err = conn.AddTrack(video); err != nil {
		p.Disconnect()
		return nil, err
	}
	p.video = video

	conn.OnDataChannel(func(dc *pion.DataChannel) {
		p.log.Debug().Msgf("Data channel [%v] opened by the peer", dc.Label())
		p.dmu.Lock()
		p.dc = dc
		p.dmu.Unlock()
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			if p.OnMessage != nil {
				p.OnMessage(msg.Data)
			}
		})
		dc.OnClose(func() { p.log.Debug().Msg("Data channel closed") })
	})

	conn.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		p.log.Debug().Msgf("ICE connection state: %v", state)
		switch state {
		case pion.ICEConnectionStateFailed,
			pion.ICEConnectionStateClosed,
			pion.ICEConnectionStateDisconnected:
			p.fireClose()
		}
	})

	if err = conn.SetRemoteDescription(offer); err != nil {
		p.Disconnect()
		return nil, fmt.Errorf("remote description rejected: %w", err)
	}
	answer, err := conn.CreateAnswer(nil)
	if err != nil {
		p.Disconnect()
		return nil, err
	}
	gathered := pion.GatheringCompletePromise(conn)
	if err = conn.SetLocalDescription(answer); err != nil {
		p.Disconnect()
		return nil, err
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		p.Disconnect()
		return nil, ctx.Err()
	}
	return conn.LocalDescription(), nil
}

// SendVideo writes one encoded video sample onto the track.
func (p *Peer) SendVideo(data []byte, duration time.Duration) error {
	if p.video == nil {
		return ErrNotConnected
	}
	return p.video.WriteSample(media.Sample{Data: data, Duration: duration})
}

// SendMessage pushes a JSON blob to the peer over the data channel.
func (p *Peer) SendMessage(data []byte) error {
	p.dmu.Lock()
	dc := p.dc
	p.dmu.Unlock()
	if dc == nil {
		return ErrNotConnected
	}
	return dc.Send(data)
}

func (p *Peer) fireClose() {
	p.closeOnce.Do(func() {
		if p.OnClose != nil {
			p.OnClose()
		}
	})
}

// Disconnect closes the peer connection. Safe to call more than once
// and before Answer.
func (p *Peer) Disconnect() {
	p.fireClose()
	if p.conn == nil {
		return
	}
	if err := p.conn.Close(); err != nil {
		p.log.Error().Err(err).Msg("WebRTC close failed")
	}
	p.conn = nil
}
