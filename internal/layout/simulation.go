// Package layout assigns 2-D positions to fraud-ring nodes with a damped
// force-directed simulation.
//
// Every node pair repels with an inverse-square force and every link pulls its
// endpoints towards a rest length, proportionally to the link weight. A
// Simulation advances one tick per Step call so a render loop can interleave
// input handling between ticks; it settles once the tick budget is spent or
// the largest per-node displacement drops below Epsilon, and then publishes a
// Settlement carrying the zoom-to-fit viewport.
package layout

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/vanshika/fraudring/internal/ring"
)

const coincident = 1e-9

// golden angle, used to spread coincident pairs deterministically
const pairAngleStep = 2.399963229728653

type spring struct {
	a, b   int
	weight float64
}

// Settlement describes a finished simulation.
type Settlement struct {
	RingID string `json:"ring_id"`
	// Generation is set by Engine; standalone simulations report 0.
	Generation      uint64  `json:"generation,omitempty"`
	Ticks           int     `json:"ticks"`
	MaxDisplacement float64 `json:"max_displacement"`
	// Converged is true when the epsilon threshold, not the tick budget, ended the run.
	Converged bool     `json:"converged"`
	Bounds    Bounds   `json:"bounds"`
	Viewport  Viewport `json:"viewport"`
}

// Result is the outcome of Run.
type Result struct {
	RingID     string              `json:"ring_id"`
	Positions  map[string]Position `json:"positions"`
	Settled    bool                `json:"settled"`
	Settlement Settlement          `json:"settlement"`
}

// Simulation owns the layout state of one ring for one run. It is not safe for
// concurrent use; drive it from a single loop.
type Simulation struct {
	cfg     Config
	ringID  string
	ids     []string
	pos     []Position
	vel     []Position
	fx, fy  []float64
	springs []spring

	tick       int
	lastDisp   float64
	settled    bool
	settlement Settlement
	listeners  []func(Settlement)
}

// New prepares a simulation for r. Rings with fewer than two nodes settle
// immediately, a lone node sitting at the canvas centre.
func New(r *ring.Ring, cfg Config) *Simulation {
	cfg = cfg.WithDefaults()
	nodes := r.Nodes()
	n := len(nodes)

	s := &Simulation{
		cfg:    cfg,
		ringID: r.ID(),
		ids:    make([]string, n),
		pos:    make([]Position, n),
		vel:    make([]Position, n),
		fx:     make([]float64, n),
		fy:     make([]float64, n),
	}

	for i, node := range nodes {
		s.ids[i] = node.Key()
		s.pos[i] = initialPosition(cfg, node.Key())
	}

	edges := r.Edges()
	s.springs = make([]spring, 0, len(edges))
	for i, e := range edges {
		a, b := r.EdgeEndpoints(i)
		if a == b {
			continue
		}
		s.springs = append(s.springs, spring{a: a, b: b, weight: e.Weight})
	}

	if n == 1 {
		s.pos[0] = Position{X: cfg.Width / 2, Y: cfg.Height / 2}
	}
	if n < 2 {
		s.settle(true)
	}
	return s
}

// initialPosition scatters a node inside the padded canvas from a hash of the
// seed and its id, so a given seed always produces the same start.
func initialPosition(cfg Config, id string) Position {
	h := fnv.New64a()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(cfg.Seed))
	_, _ = h.Write(seed[:])
	_, _ = h.Write([]byte(id))
	sum := h.Sum64()

	fx := float64(sum>>32) / float64(math.MaxUint32)
	fy := float64(sum&math.MaxUint32) / float64(math.MaxUint32)
	return Position{
		X: cfg.Padding + fx*(cfg.Width-2*cfg.Padding),
		Y: cfg.Padding + fy*(cfg.Height-2*cfg.Padding),
	}
}

// OnSettled registers fn to run once the simulation settles. If it already
// has, fn runs immediately.
func (s *Simulation) OnSettled(fn func(Settlement)) {
	if fn == nil {
		return
	}
	if s.settled {
		fn(s.settlement)
		return
	}
	s.listeners = append(s.listeners, fn)
}

// RingID returns the id of the ring being laid out.
func (s *Simulation) RingID() string { return s.ringID }

// Settled reports whether the simulation has finished.
func (s *Simulation) Settled() bool { return s.settled }

// Ticks returns how many ticks have run.
func (s *Simulation) Ticks() int { return s.tick }

// Settlement returns the settlement, valid once Settled reports true.
func (s *Simulation) Settlement() (Settlement, bool) {
	return s.settlement, s.settled
}

// Step advances the simulation by exactly one tick and returns the largest
// node displacement of that tick. It is a no-op once settled.
func (s *Simulation) Step() (float64, bool) {
	if s.settled {
		return 0, true
	}

	n := len(s.pos)
	for i := 0; i < n; i++ {
		s.fx[i], s.fy[i] = 0, 0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ux, uy, dist := s.axis(i, j)
			d := math.Max(dist, s.cfg.MinDistance)
			f := s.cfg.Repulsion / (d * d)
			s.fx[i] -= f * ux
			s.fy[i] -= f * uy
			s.fx[j] += f * ux
			s.fy[j] += f * uy
		}
	}

	for _, sp := range s.springs {
		ux, uy, dist := s.axis(sp.a, sp.b)
		if dist < coincident {
			continue
		}
		f := s.cfg.Attraction * sp.weight * (dist - s.cfg.IdealLength)
		s.fx[sp.a] += f * ux
		s.fy[sp.a] += f * uy
		s.fx[sp.b] -= f * ux
		s.fy[sp.b] -= f * uy
	}

	maxDisp := 0.0
	for i := 0; i < n; i++ {
		fx, fy := clamp(s.fx[i], s.fy[i], s.cfg.MaxForce)
		s.vel[i].X = (s.vel[i].X + fx) * s.cfg.Damping
		s.vel[i].Y = (s.vel[i].Y + fy) * s.cfg.Damping
		s.pos[i].X += s.vel[i].X
		s.pos[i].Y += s.vel[i].Y
		if d := math.Hypot(s.vel[i].X, s.vel[i].Y); d > maxDisp {
			maxDisp = d
		}
	}

	s.tick++
	s.lastDisp = maxDisp

	switch {
	case s.cfg.Epsilon > 0 && maxDisp < s.cfg.Epsilon:
		s.settle(true)
	case s.tick >= s.cfg.MaxTicks:
		s.settle(false)
	}
	return maxDisp, s.settled
}

// axis returns the unit vector from node i to node j and their distance.
// Coincident nodes get a pseudo-direction derived from their indices.
func (s *Simulation) axis(i, j int) (float64, float64, float64) {
	dx := s.pos[j].X - s.pos[i].X
	dy := s.pos[j].Y - s.pos[i].Y
	dist := math.Hypot(dx, dy)
	if dist < coincident {
		theta := float64(i+1)*pairAngleStep + float64(j+1)*pairAngleStep*pairAngleStep
		return math.Cos(theta), math.Sin(theta), 0
	}
	return dx / dist, dy / dist, dist
}

func clamp(fx, fy, limit float64) (float64, float64) {
	m := math.Hypot(fx, fy)
	if m <= limit || m == 0 {
		return fx, fy
	}
	k := limit / m
	return fx * k, fy * k
}

func (s *Simulation) settle(converged bool) {
	bounds := BoundsOf(s.pos)
	if len(s.pos) == 0 {
		c := Position{X: s.cfg.Width / 2, Y: s.cfg.Height / 2}
		bounds = Bounds{MinX: c.X, MinY: c.Y, MaxX: c.X, MaxY: c.Y}
	}
	s.settled = true
	s.settlement = Settlement{
		RingID:          s.ringID,
		Ticks:           s.tick,
		MaxDisplacement: s.lastDisp,
		Converged:       converged,
		Bounds:          bounds,
		Viewport:        Fit(bounds, s.cfg.Width, s.cfg.Height, s.cfg.Padding, s.cfg.NodeRadius, s.cfg.MaxZoom),
	}
	listeners := s.listeners
	s.listeners = nil
	for _, fn := range listeners {
		fn(s.settlement)
	}
}

// Position returns the current position of a node.
func (s *Simulation) Position(id string) (Position, bool) {
	for i, nid := range s.ids {
		if nid == id {
			return s.pos[i], true
		}
	}
	return Position{}, false
}

// Positions returns a snapshot of every node position keyed by merchant id.
func (s *Simulation) Positions() map[string]Position {
	out := make(map[string]Position, len(s.ids))
	for i, id := range s.ids {
		out[id] = s.pos[i]
	}
	return out
}

// Run steps until the simulation settles or ctx is done. A cancelled run
// returns the best-effort positions with Settled=false.
func (s *Simulation) Run(ctx context.Context) Result {
	for !s.settled {
		if ctx.Err() != nil {
			break
		}
		s.Step()
	}
	return s.Result()
}

// Result snapshots the current state.
func (s *Simulation) Result() Result {
	return Result{
		RingID:     s.ringID,
		Positions:  s.Positions(),
		Settled:    s.settled,
		Settlement: s.settlement,
	}
}
