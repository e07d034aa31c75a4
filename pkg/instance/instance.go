// Package instance runs one game model as a fixed-rate stepping loop,
// feeding it coalesced input and publishing the frames it produces.
package instance

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/games/params"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/monitoring"
)

type State int32

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

var ErrNotRunning = errors.New("instance is not running")

type Instance struct {
	model games.Model
	conf  config.Instance
	log   *logger.Logger

	input *inputBuffer

	pmu     sync.Mutex
	current any

	state atomic.Int32

	onFrame atomic.Pointer[func(games.Frame)]
	onStop  func(err error)

	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

// New wraps a leased model. onStop fires once when the loop ends for
// any reason other than an explicit Stop, with the error that killed
// it.
func New(model games.Model, conf config.Instance, onStop func(err error), log *logger.Logger) *Instance {
	return &Instance{
		model:    model,
		conf:     conf,
		log:      log.Extend(log.With().Str("m", "instance")),
		input:    newInputBuffer(),
		current:  model.DefaultParams(),
		onStop:   onStop,
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

func (in *Instance) State() State { return State(in.state.Load()) }

func (in *Instance) SetOnFrame(fn func(games.Frame)) { in.onFrame.Store(&fn) }

// Start launches the loop. Callable once.
func (in *Instance) Start() {
	if !in.state.CompareAndSwap(int32(Created), int32(Running)) {
		return
	}
	go in.loop()
}

// Stop halts the loop and waits for the in-flight step, if any, to
// settle. Idempotent.
func (in *Instance) Stop() {
	in.stopOnce.Do(func() { close(in.stop) })
	if State(in.state.Load()) != Created {
		<-in.loopDone
	}
}

func (in *Instance) KeyDown(code int)              { in.input.KeyDown(code) }
func (in *Instance) KeyUp(code int)                { in.input.KeyUp(code) }
func (in *Instance) MouseMove(dx, dy int)          { in.input.MouseMove(dx, dy) }
func (in *Instance) MouseDown(button int)          { in.input.MouseDown(button) }
func (in *Instance) MouseUp(button int)            { in.input.MouseUp(button) }
func (in *Instance) ViewportSize() (int, int)      { return in.model.ViewportSize() }

// Params returns the parameter set the next step will run with.
func (in *Instance) Params() any {
	in.pmu.Lock()
	defer in.pmu.Unlock()
	return in.current
}

// UpdateParams validates the patch against the active parameter set
// and swaps the whole set in between steps. A rejected patch changes
// nothing.
func (in *Instance) UpdateParams(patch map[string]any) error {
	if State(in.state.Load()) > Running {
		return ErrNotRunning
	}
	in.pmu.Lock()
	defer in.pmu.Unlock()
	next, err := params.Apply(in.current, patch)
	if err != nil {
		return err
	}
	in.current = next
	in.log.Debug().Msgf("Params updated: %+v", next)
	return nil
}

func (in *Instance) loop() {
	defer close(in.loopDone)
	fps := in.conf.Fps
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	in.log.Info().Msgf("Loop started at %v fps", fps)

	for {
		select {
		case <-in.stop:
			in.finish(nil)
			return
		case <-ticker.C:
			if err := in.step(); err != nil {
				in.finish(err)
				return
			}
		}
	}
}

// step runs one model step under a deadline. A step that overruns the
// deadline marks the instance dead even if it returns later, a stuck
// model must not wedge the loop forever.
func (in *Instance) step() error {
	snap := in.input.Snapshot()
	p := in.Params()

	type result struct {
		frame games.Frame
		err   error
	}
	done := make(chan result, 1)
	go func() {
		f, err := in.model.Step(snap, p)
		done <- result{frame: f, err: err}
	}()

	timeout := in.conf.StepTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("step failed: %w", r.err)
		}
		monitoring.FramesProduced.Inc()
		if fn := in.onFrame.Load(); fn != nil && *fn != nil {
			(*fn)(r.frame)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("step exceeded %v", timeout)
	}
}

func (in *Instance) finish(err error) {
	in.state.Store(int32(Stopping))
	if err != nil {
		in.log.Error().Err(err).Msg("Loop aborted")
		if in.onStop != nil {
			in.onStop(err)
		}
	}
	// the model itself belongs to the pool lease, not to the loop
	in.state.Store(int32(Stopped))
	in.log.Info().Msg("Loop stopped")
}
