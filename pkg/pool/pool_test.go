package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
)

type fakeModel struct {
	closed atomic.Bool
}

func (m *fakeModel) ViewportSize() (int, int) { return 1, 1 }
func (m *fakeModel) DefaultParams() any       { return &struct{}{} }
func (m *fakeModel) Step(games.InputSnapshot, any) (games.Frame, error) {
	return games.Frame{}, nil
}
func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeMaker struct {
	mu   sync.Mutex
	made []*fakeModel
	fail bool
}

func (f *fakeMaker) NewModel(games.Descriptor) (games.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("load blew up")
	}
	m := &fakeModel{}
	f.made = append(f.made, m)
	return m, nil
}

func desc(id string) games.Descriptor { return games.Descriptor{Type: "synth", Id: id} }

func newArbiter(t *testing.T, conf config.Pool, maker ModelMaker) *Arbiter {
	t.Helper()
	a := NewArbiter(conf, maker, logger.Default())
	t.Cleanup(a.Close)
	return a
}

func TestCapacityNeverExceeded(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 3}, maker)

	var peak atomic.Int32
	var held atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := a.Acquire(context.Background(), desc("g"))
			if err != nil {
				if !errors.Is(err, ErrBusy) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			n := held.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			held.Add(-1)
			l.Release()
		}(i)
	}
	wg.Wait()
	if p := peak.Load(); p > 3 {
		t.Errorf("capacity breached: %d concurrent leases", p)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1}, maker)

	l, err := a.Acquire(context.Background(), desc("g"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	l.Release()
	l.Release()

	if _, err = a.Acquire(context.Background(), desc("g")); err != nil {
		t.Fatalf("slot not reusable after release: %v", err)
	}
}

func TestBusyWithoutQueue(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1}, maker)

	l, _ := a.Acquire(context.Background(), desc("g"))
	defer l.Release()

	if _, err := a.Acquire(context.Background(), desc("g")); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
}

func TestQueueFIFO(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1, QueueSize: 2, QueueWait: time.Second}, maker)

	l, _ := a.Acquire(context.Background(), desc("g"))

	got := make(chan int, 2)
	ready := make(chan struct{}, 2)
	for i := 1; i <= 2; i++ {
		go func(i int) {
			ready <- struct{}{}
			w, err := a.Acquire(context.Background(), desc("g"))
			if err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			got <- i
			w.Release()
		}(i)
		<-ready
		time.Sleep(10 * time.Millisecond)
	}

	l.Release()
	if first := <-got; first != 1 {
		t.Errorf("waiter %d served before waiter 1", first)
	}
	<-got
}

func TestQueueTimeout(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1, QueueSize: 1, QueueWait: 20 * time.Millisecond}, maker)

	l, _ := a.Acquire(context.Background(), desc("g"))
	defer l.Release()

	start := time.Now()
	if _, err := a.Acquire(context.Background(), desc("g")); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy after wait, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("waiter gave up before the wait window")
	}
}

func TestInstantiationFailureFreesSlot(t *testing.T) {
	maker := &fakeMaker{fail: true}
	a := newArbiter(t, config.Pool{Capacity: 1}, maker)

	var ierr *InstantiationError
	if _, err := a.Acquire(context.Background(), desc("g")); !errors.As(err, &ierr) {
		t.Fatalf("want InstantiationError, got %v", err)
	}

	maker.mu.Lock()
	maker.fail = false
	maker.mu.Unlock()
	l, err := a.Acquire(context.Background(), desc("g"))
	if err != nil {
		t.Fatalf("slot leaked after failed load: %v", err)
	}
	l.Release()
}

func TestIdleReuse(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1, IdleGrace: time.Minute}, maker)

	l, _ := a.Acquire(context.Background(), desc("g"))
	m := l.Model()
	l.Release()

	l2, err := a.Acquire(context.Background(), desc("g"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l2.Release()
	if l2.Model() != m {
		t.Error("warm model not reused")
	}
	if len(maker.made) != 1 {
		t.Errorf("loaded %d models, want 1", len(maker.made))
	}
}

func TestIdleEvictedForOtherGame(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1, IdleGrace: time.Minute}, maker)

	l, _ := a.Acquire(context.Background(), desc("a"))
	old := l.Model().(*fakeModel)
	l.Release()

	l2, err := a.Acquire(context.Background(), desc("b"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l2.Release()
	if !old.closed.Load() {
		t.Error("idle model of another game not evicted")
	}
}

func TestIdleGraceExpiry(t *testing.T) {
	maker := &fakeMaker{}
	a := newArbiter(t, config.Pool{Capacity: 1, IdleGrace: 10 * time.Millisecond}, maker)

	l, _ := a.Acquire(context.Background(), desc("g"))
	m := l.Model().(*fakeModel)
	l.Release()

	deadline := time.After(time.Second)
	for !m.closed.Load() {
		select {
		case <-deadline:
			t.Fatal("idle model survived the grace period")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
