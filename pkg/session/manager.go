package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oneirogames/oneiro/pkg/api"
	"github.com/oneirogames/oneiro/pkg/com"
	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/games/params"
	"github.com/oneirogames/oneiro/pkg/instance"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/monitoring"
	"github.com/oneirogames/oneiro/pkg/pool"
	pion "github.com/pion/webrtc/v4"
)

var ErrSessionNotFound = errors.New("session not found")

// NegotiationError means the lease was granted but the peer link
// never came up. The slot has already been returned.
type NegotiationError struct {
	Cause error
}

func (e *NegotiationError) Error() string { return fmt.Sprintf("negotiation failed: %v", e.Cause) }
func (e *NegotiationError) Unwrap() error { return e.Cause }

// TransportFactory builds one transport per session.
type TransportFactory func() Transport

// CodecFactory builds a video encoder for the given frame geometry.
type CodecFactory func(w, h int) (VideoEncoder, error)

type Manager struct {
	conf       config.ServerConfig
	library    games.GameLibrary
	arbiter    *pool.Arbiter
	transports TransportFactory
	codecs     CodecFactory
	log        *logger.Logger

	sessions com.Map[com.Uid, *Session]

	done chan struct{}
	wg   sync.WaitGroup
}

func NewManager(conf config.ServerConfig, library games.GameLibrary, arbiter *pool.Arbiter,
	transports TransportFactory, codecs CodecFactory, log *logger.Logger) *Manager {
	return &Manager{
		conf:       conf,
		library:    library,
		arbiter:    arbiter,
		transports: transports,
		codecs:     codecs,
		log:        log.Extend(log.With().Str("m", "session")),
		done:       make(chan struct{}),
	}
}

// Negotiate runs the full admission path: find the game, lease a
// model slot, bring up the transport, and start stepping. Any failure
// after the lease was granted returns the slot before reporting.
func (m *Manager) Negotiate(ctx context.Context, gameType, gameId string, offer api.SessionDescription) (*api.OfferResponse, error) {
	desc, err := m.library.Find(gameType, gameId)
	if err != nil {
		return nil, err
	}

	lease, err := m.arbiter.Acquire(ctx, desc)
	if err != nil {
		return nil, err
	}

	w, h := lease.Model().ViewportSize()
	video, err := m.codecs(w, h)
	if err != nil {
		lease.Release()
		return nil, &NegotiationError{Cause: err}
	}

	fps := m.conf.Instance.Fps
	if fps <= 0 {
		fps = 30
	}
	id := com.NewUid()
	s := &Session{
		id:       id,
		game:     desc,
		lease:    lease,
		video:    video,
		frameDur: time.Second / time.Duration(fps),
		log:      m.log.Extend(m.log.With().Str("sid", id.Short())),
	}
	s.Touch()
	s.inst = instance.New(lease.Model(), m.conf.Instance, func(err error) {
		s.broken.Store(true)
		go m.terminate(s, "instance failure")
	}, s.log)

	// The session enters the table before the transport can fire
	// callbacks, so an early close converges through the same
	// teardown path as everything else.
	m.sessions.Put(s.id, s)

	t := m.transports()
	s.transport = t
	t.SetOnMessage(s.handleMessage)
	t.SetOnClose(func() { go m.terminate(s, "transport closed") })

	answer, err := t.Answer(ctx, pion.SessionDescription{
		SDP:  offer.Sdp,
		Type: pion.NewSDPType(offer.Type),
	})
	if err != nil {
		m.terminate(s, "negotiation failed")
		return nil, &NegotiationError{Cause: err}
	}

	if !s.state.CompareAndSwap(int32(Negotiating), int32(Active)) {
		// the peer dropped while the answer was in flight
		return nil, &NegotiationError{Cause: errors.New("transport closed during negotiation")}
	}
	monitoring.ActiveSessions.Inc()
	s.inst.SetOnFrame(s.publishFrame)
	s.inst.Start()
	m.log.Info().Str("sid", s.id.Short()).Str("game", desc.Slug()).Msg("Session started")

	return &api.OfferResponse{
		Sdp:       answer.SDP,
		Type:      answer.Type.String(),
		SessionId: s.id.String(),
	}, nil
}

func (m *Manager) find(sid string) (*Session, error) {
	s, err := m.sessions.Find(com.UidFrom(sid))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// UpdateParams applies a parameter patch to a running session.
func (m *Manager) UpdateParams(sid string, patch map[string]any) error {
	s, err := m.find(sid)
	if err != nil {
		return err
	}
	s.Touch()
	return s.inst.UpdateParams(patch)
}

// SchemaFor returns the params schema of the session's game together
// with its rendering hints.
func (m *Manager) SchemaFor(sid string) (*api.SchemaResponse, error) {
	s, err := m.find(sid)
	if err != nil {
		return nil, err
	}
	resp := &api.SchemaResponse{Schema: params.Schema(s.inst.Params())}
	if len(s.game.UISchema) > 0 {
		resp.UISchema = s.game.UISchema
	}
	return resp, nil
}

// Terminate tears the session down and reports whether it was still
// known. Safe to call for a session that is already gone.
func (m *Manager) Terminate(sid string) bool {
	s, err := m.find(sid)
	if err != nil {
		return false
	}
	m.terminate(s, "requested")
	return true
}

// terminate is the single teardown path shared by heartbeat expiry,
// transport loss, instance failure, and explicit requests.
func (m *Manager) terminate(s *Session, reason string) {
	s.closeOnce.Do(func() {
		wasActive := s.state.Swap(int32(Closing)) == int32(Active)
		m.sessions.RemoveByKey(s.id)

		s.inst.Stop()
		s.transport.Disconnect()
		s.video.Stop()
		if s.broken.Load() {
			s.lease.Discard()
		} else {
			s.lease.Release()
		}

		s.state.Store(int32(Closed))
		if wasActive {
			monitoring.ActiveSessions.Dec()
		}
		s.log.Info().Str("reason", reason).Msg("Session closed")
	})
}

// Run starts the liveness sweeper.
func (m *Manager) Run() {
	interval := m.conf.Session.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-tick.C:
				m.sweep()
			}
		}
	}()
}

func (m *Manager) sweep() {
	timeout := m.conf.Session.HeartbeatTimeout
	if timeout <= 0 {
		// fall back to three missed beats, matching the client cadence
		if iv := m.conf.Session.HeartbeatInterval; iv > 0 {
			timeout = 3 * iv
		} else {
			timeout = 5 * time.Second
		}
	}
	var stale []*Session
	m.sessions.ForEach(func(s *Session) {
		if s.Expired(timeout) {
			stale = append(stale, s)
		}
	})
	for _, s := range stale {
		m.terminate(s, "heartbeat timeout")
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int { return m.sessions.Len() }

// Shutdown stops the sweeper and closes every session.
func (m *Manager) Shutdown() {
	close(m.done)
	m.wg.Wait()
	var all []*Session
	m.sessions.ForEach(func(s *Session) { all = append(all, s) })
	for _, s := range all {
		m.terminate(s, "shutdown")
	}
}
