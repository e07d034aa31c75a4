// Package pool arbitrates a fixed budget of model slots between
// sessions. A granted lease pins one slot until released; released
// models linger for a grace period so a quick reconnect to the same
// game skips the load.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/monitoring"
)

// ErrBusy is returned when every slot is leased and the wait queue
// is full or disabled.
var ErrBusy = errors.New("all slots are busy")

// InstantiationError wraps a model load failure; the slot reserved
// for the load has already been returned.
type InstantiationError struct {
	Slug  string
	Cause error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate %v: %v", e.Slug, e.Cause)
}
func (e *InstantiationError) Unwrap() error { return e.Cause }

// ModelMaker builds a model from its descriptor.
type ModelMaker interface {
	NewModel(desc games.Descriptor) (games.Model, error)
}

type Arbiter struct {
	maker ModelMaker
	conf  config.Pool
	log   *logger.Logger

	mu       sync.Mutex
	occupied int
	idle     []*idleModel
	waiters  []chan struct{}
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

type idleModel struct {
	slug       string
	model      games.Model
	releasedAt time.Time
}

// Lease is a granted slot. Release is idempotent.
type Lease struct {
	arb   *Arbiter
	slug  string
	model games.Model
	once  sync.Once
}

func (l *Lease) Model() games.Model { return l.model }
func (l *Lease) Slug() string       { return l.slug }

func (l *Lease) Release() {
	l.once.Do(func() { l.arb.release(l.slug, l.model, false) })
}

// Discard frees the slot and closes the model instead of keeping it
// warm, for models known to be in a bad state.
func (l *Lease) Discard() {
	l.once.Do(func() { l.arb.release(l.slug, l.model, true) })
}

func NewArbiter(conf config.Pool, maker ModelMaker, log *logger.Logger) *Arbiter {
	a := &Arbiter{
		maker: maker,
		conf:  conf,
		log:   log.Extend(log.With().Str("m", "pool")),
		done:  make(chan struct{}),
	}
	if conf.IdleGrace > 0 {
		a.wg.Add(1)
		go a.janitor()
	}
	return a
}

// Acquire grants a slot for the given game, waiting in FIFO order up
// to the configured queue bounds when the pool is saturated.
func (a *Arbiter) Acquire(ctx context.Context, desc games.Descriptor) (*Lease, error) {
	for {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return nil, errors.New("pool is closed")
		}

		// warm reuse of the same game beats a fresh load
		if m := a.takeIdleLocked(desc.Slug()); m != nil {
			a.occupied++
			a.track()
			a.mu.Unlock()
			monitoring.Admissions.WithLabelValues("reused").Inc()
			a.log.Debug().Str("game", desc.Slug()).Msg("Idle model reused")
			return &Lease{arb: a, slug: desc.Slug(), model: m}, nil
		}

		if a.usedLocked() < a.conf.Capacity {
			return a.loadLocked(desc)
		}

		// all slots taken but some hold idle models: evict the one
		// released longest ago and load into its slot
		if evicted := a.evictOldestLocked(); evicted != nil {
			a.mu.Unlock()
			a.closeIdle(evicted)
			a.mu.Lock()
			if a.usedLocked() < a.conf.Capacity {
				return a.loadLocked(desc)
			}
			a.mu.Unlock()
			continue
		}

		if a.conf.QueueSize == 0 || len(a.waiters) >= a.conf.QueueSize {
			a.mu.Unlock()
			monitoring.Admissions.WithLabelValues("busy").Inc()
			return nil, ErrBusy
		}
		wake := make(chan struct{}, 1)
		a.waiters = append(a.waiters, wake)
		a.mu.Unlock()

		if err := a.wait(ctx, wake); err != nil {
			return nil, err
		}
	}
}

func (a *Arbiter) wait(ctx context.Context, wake chan struct{}) error {
	timer := time.NewTimer(a.conf.QueueWait)
	defer timer.Stop()
	select {
	case <-wake:
		return nil
	case <-timer.C:
		a.dropWaiter(wake)
		monitoring.Admissions.WithLabelValues("busy").Inc()
		return ErrBusy
	case <-ctx.Done():
		a.dropWaiter(wake)
		return ctx.Err()
	case <-a.done:
		a.dropWaiter(wake)
		return errors.New("pool is closed")
	}
}

// loadLocked reserves a slot, drops the lock for the slow load, and
// gives the slot back on failure. Callers hold the lock.
func (a *Arbiter) loadLocked(desc games.Descriptor) (*Lease, error) {
	a.occupied++
	a.track()
	a.mu.Unlock()

	m, err := a.maker.NewModel(desc)
	if err != nil {
		a.mu.Lock()
		a.occupied--
		a.track()
		a.wakeLocked()
		a.mu.Unlock()
		monitoring.Admissions.WithLabelValues("error").Inc()
		return nil, &InstantiationError{Slug: desc.Slug(), Cause: err}
	}
	monitoring.Admissions.WithLabelValues("granted").Inc()
	a.log.Info().Str("game", desc.Slug()).Msg("Model loaded")
	return &Lease{arb: a, slug: desc.Slug(), model: m}, nil
}

func (a *Arbiter) release(slug string, m games.Model, discard bool) {
	a.mu.Lock()
	a.occupied--
	if !discard && a.conf.IdleGrace > 0 && !a.closed {
		a.idle = append(a.idle, &idleModel{slug: slug, model: m, releasedAt: time.Now()})
		m = nil
	}
	a.track()
	a.wakeLocked()
	a.mu.Unlock()

	if m != nil {
		if err := m.Close(); err != nil {
			a.log.Error().Err(err).Str("game", slug).Msg("Model close failed")
		}
	}
}

func (a *Arbiter) takeIdleLocked(slug string) games.Model {
	for i, im := range a.idle {
		if im.slug == slug {
			a.idle = append(a.idle[:i], a.idle[i+1:]...)
			return im.model
		}
	}
	return nil
}

func (a *Arbiter) evictOldestLocked() *idleModel {
	if len(a.idle) == 0 {
		return nil
	}
	oldest := 0
	for i, im := range a.idle {
		if im.releasedAt.Before(a.idle[oldest].releasedAt) {
			oldest = i
		}
	}
	im := a.idle[oldest]
	a.idle = append(a.idle[:oldest], a.idle[oldest+1:]...)
	return im
}

func (a *Arbiter) closeIdle(im *idleModel) {
	if err := im.model.Close(); err != nil {
		a.log.Error().Err(err).Str("game", im.slug).Msg("Model close failed")
	} else {
		a.log.Debug().Str("game", im.slug).Msg("Idle model evicted")
	}
}

func (a *Arbiter) wakeLocked() {
	if len(a.waiters) > 0 {
		w := a.waiters[0]
		a.waiters = a.waiters[1:]
		w <- struct{}{}
	}
}

func (a *Arbiter) dropWaiter(wake chan struct{}) {
	a.mu.Lock()
	for i, w := range a.waiters {
		if w == wake {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			a.mu.Unlock()
			return
		}
	}
	a.mu.Unlock()
	// already woken, pass the grant on
	select {
	case <-wake:
		a.mu.Lock()
		a.wakeLocked()
		a.mu.Unlock()
	default:
	}
}

// usedLocked counts leased slots plus slots pinned by idle models.
func (a *Arbiter) usedLocked() int { return a.occupied + len(a.idle) }

func (a *Arbiter) track() {
	monitoring.OccupiedCapacity.Set(float64(a.usedLocked()))
}

func (a *Arbiter) janitor() {
	defer a.wg.Done()
	tick := time.NewTicker(a.conf.IdleGrace / 2)
	defer tick.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-tick.C:
			a.sweepIdle()
		}
	}
}

func (a *Arbiter) sweepIdle() {
	deadline := time.Now().Add(-a.conf.IdleGrace)
	var expired []*idleModel
	a.mu.Lock()
	kept := a.idle[:0]
	for _, im := range a.idle {
		if im.releasedAt.Before(deadline) {
			expired = append(expired, im)
		} else {
			kept = append(kept, im)
		}
	}
	a.idle = kept
	if len(expired) > 0 {
		a.track()
		a.wakeLocked()
	}
	a.mu.Unlock()
	for _, im := range expired {
		a.closeIdle(im)
	}
}

// Close evicts every idle model and fails pending waiters. Leased
// models are the leaseholders' to release.
func (a *Arbiter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	idle := a.idle
	a.idle = nil
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()
	for _, im := range idle {
		a.closeIdle(im)
	}
}
