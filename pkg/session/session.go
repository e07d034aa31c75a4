// Package session ties one browser peer to one leased game instance
// and owns the lifecycle of that pairing.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oneirogames/oneiro/pkg/com"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/instance"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/pool"
	pion "github.com/pion/webrtc/v4"
)

type State int32

const (
	Negotiating State = iota
	Active
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Negotiating:
		return "negotiating"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

// Transport is the peer-facing half of a session. The production
// implementation wraps a WebRTC peer connection.
type Transport interface {
	Answer(ctx context.Context, offer pion.SessionDescription) (*pion.SessionDescription, error)
	SendVideo(data []byte, duration time.Duration) error
	SetOnMessage(fn func(data []byte))
	SetOnClose(fn func())
	Disconnect()
}

// VideoEncoder compresses RGBA frames for the transport track.
type VideoEncoder interface {
	Encode(rgba []byte, stride int) []byte
	Stop()
}

type Session struct {
	id        com.Uid
	game      games.Descriptor
	lease     *pool.Lease
	inst      *instance.Instance
	transport Transport
	video     VideoEncoder
	frameDur  time.Duration
	log       *logger.Logger

	state    atomic.Int32
	lastBeat atomic.Int64
	broken   atomic.Bool

	closeOnce sync.Once
}

func (s *Session) Id() com.Uid             { return s.id }
func (s *Session) Game() games.Descriptor  { return s.game }
func (s *Session) State() State            { return State(s.state.Load()) }
func (s *Session) Instance() *instance.Instance { return s.inst }

// Touch refreshes the liveness clock.
func (s *Session) Touch() { s.lastBeat.Store(time.Now().UnixNano()) }

// Expired reports whether the peer has been silent longer than the
// allowed window.
func (s *Session) Expired(timeout time.Duration) bool {
	last := time.Unix(0, s.lastBeat.Load())
	return time.Since(last) > timeout
}
