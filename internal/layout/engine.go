package layout

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/vanshika/fraudring/internal/ring"
)

// ErrNoRing is returned by Engine operations issued before Load.
var ErrNoRing = errors.New("no ring loaded")

// Frame is the engine state after one tick.
type Frame struct {
	RingID     string              `json:"ring_id"`
	Generation uint64              `json:"generation"`
	Tick       int                 `json:"tick"`
	Settled    bool                `json:"settled"`
	Positions  map[string]Position `json:"positions"`
}

// Engine drives the current simulation of a render surface. Loading a new ring
// discards the previous simulation together with its pending callbacks; a
// settlement from an older generation is never delivered.
//
// Engine is safe for concurrent use.
type Engine struct {
	cfg Config

	mu         sync.RWMutex
	sim        *Simulation
	generation uint64
	listeners  []func(Settlement)
	pending    []Settlement
}

// NewEngine returns an empty engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the effective simulation settings.
func (e *Engine) Config() Config { return e.cfg.WithDefaults() }

// OnSettled registers fn for the settlement of every ring loaded from now on.
func (e *Engine) OnSettled(fn func(Settlement)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Load replaces the current simulation with a fresh one for r and returns its
// generation. Single-node and empty rings settle inside Load.
func (e *Engine) Load(r *ring.Ring) uint64 {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.sim = New(r, e.cfg)
	e.pending = e.pending[:0]
	// runs with e.mu held, from Load or Tick
	e.sim.OnSettled(func(s Settlement) {
		s.Generation = gen
		e.pending = append(e.pending, s)
	})
	e.mu.Unlock()

	e.deliver()
	return gen
}

// deliver hands queued settlements of the current generation to listeners
// outside the lock.
func (e *Engine) deliver() {
	e.mu.Lock()
	var out []Settlement
	for _, s := range e.pending {
		if s.Generation == e.generation {
			out = append(out, s)
		}
	}
	e.pending = e.pending[:0]
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	for _, s := range out {
		for _, fn := range listeners {
			fn(s)
		}
	}
}

// Generation returns the generation of the current ring, 0 before any Load.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Tick advances the current simulation by one step.
func (e *Engine) Tick() (Frame, error) {
	e.mu.Lock()
	sim := e.sim
	gen := e.generation
	if sim == nil {
		e.mu.Unlock()
		return Frame{}, ErrNoRing
	}
	sim.Step()
	frame := Frame{
		RingID:     sim.RingID(),
		Generation: gen,
		Tick:       sim.Ticks(),
		Settled:    sim.Settled(),
		Positions:  sim.Positions(),
	}
	e.mu.Unlock()

	if frame.Settled {
		e.deliver()
	}
	return frame, nil
}

// Run ticks the current simulation until it settles or ctx is done, handing
// every frame to emit. A non-nil error from emit stops the run.
func (e *Engine) Run(ctx context.Context, emit func(Frame) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := e.Tick()
		if err != nil {
			return err
		}
		if emit != nil {
			if err := emit(frame); err != nil {
				return err
			}
		}
		if frame.Settled {
			return nil
		}
	}
}

// Settlement returns the settlement of the current ring, if it has settled.
func (e *Engine) Settlement() (Settlement, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sim == nil {
		return Settlement{}, false
	}
	s, ok := e.sim.Settlement()
	s.Generation = e.generation
	return s, ok
}

// Position returns the current position of a node of the loaded ring.
func (e *Engine) Position(id string) (Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sim == nil {
		return Position{}, false
	}
	return e.sim.Position(id)
}

// Positions snapshots every node position of the loaded ring.
func (e *Engine) Positions() map[string]Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sim == nil {
		return map[string]Position{}
	}
	return e.sim.Positions()
}
