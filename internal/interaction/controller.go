// Package interaction turns pointer input over a rendered fraud ring into
// hover state and navigation intents, and produces renderer-neutral draw data.
//
// The controller is a two-state machine (Idle, NodeHovered). It never writes
// to the layout: node positions are read through PositionSource, and the
// viewport follows layout settlements and canvas resizes.
package interaction

import (
	"math"

	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/ring"
)

// State is the hover state of a controller.
type State int

const (
	Idle State = iota
	NodeHovered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case NodeHovered:
		return "node_hovered"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON frames.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PositionSource provides read-only access to node positions in simulation
// space. *layout.Engine and *layout.Simulation satisfy it.
type PositionSource interface {
	Position(id string) (layout.Position, bool)
}

// CanvasSize applies the dashboard sizing rule: full container width and
// 60% of the viewport height, capped at 600 px.
func CanvasSize(containerWidth, viewportHeight float64) (float64, float64) {
	return containerWidth, math.Min(600, viewportHeight*3/5)
}

// Controller is synchronous and single-threaded; call it from the render loop.
type Controller struct {
	source PositionSource
	style  Style

	width, height float64
	padding       float64
	maxZoom       float64

	ring       *ring.Ring
	generation uint64
	bounds     layout.Bounds
	fitted     bool
	viewport   layout.Viewport

	state   State
	hovered string
}

// NewController returns an idle controller drawing on the canvas described by
// cfg (width, height, padding and zoom cap).
func NewController(source PositionSource, style Style, cfg layout.Config) *Controller {
	cfg = cfg.WithDefaults()
	c := &Controller{
		source:  source,
		style:   style,
		width:   cfg.Width,
		height:  cfg.Height,
		padding: cfg.Padding,
		maxZoom: cfg.MaxZoom,
	}
	c.viewport = c.identity()
	return c
}

func (c *Controller) identity() layout.Viewport {
	return layout.Viewport{Width: c.width, Height: c.height, Scale: 1}
}

// Bind switches the controller to a newly loaded ring. Hover state of the
// previous ring is dropped.
func (c *Controller) Bind(r *ring.Ring, generation uint64) {
	c.ring = r
	c.generation = generation
	c.fitted = false
	c.viewport = c.identity()
	c.state = Idle
	c.hovered = ""
}

// Settled applies a layout settlement: the viewport is fitted to the settled
// bounds. Settlements of another ring or generation are ignored.
func (c *Controller) Settled(s layout.Settlement) {
	if c.ring == nil || s.RingID != c.ring.ID() {
		return
	}
	if s.Generation != 0 && c.generation != 0 && s.Generation != c.generation {
		return
	}
	c.bounds = s.Bounds
	c.fitted = true
	c.refit()
}

// Resize changes the canvas size. The viewport is re-fitted from the last
// settled bounds; hover state and the simulation are left alone.
func (c *Controller) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	c.width, c.height = width, height
	if 2*c.padding >= width || 2*c.padding >= height {
		c.padding = 0
	}
	c.refit()
}

func (c *Controller) refit() {
	if !c.fitted {
		c.viewport = c.identity()
		return
	}
	c.viewport = layout.Fit(c.bounds, c.width, c.height, c.padding, c.style.NodeRadius, c.maxZoom)
}

// Viewport returns the current world-to-screen mapping.
func (c *Controller) Viewport() layout.Viewport { return c.viewport }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Hovered returns the hovered merchant id.
func (c *Controller) Hovered() (string, bool) {
	return c.hovered, c.state == NodeHovered
}

// PointerMove hit-tests a pointer at canvas coordinates (x, y). Entering a
// node hovers it, moving onto another node re-targets directly, and leaving
// every node returns to Idle.
func (c *Controller) PointerMove(x, y float64) State {
	if id, ok := c.hitTest(x, y); ok {
		c.state = NodeHovered
		c.hovered = id
	} else {
		c.state = Idle
		c.hovered = ""
	}
	return c.state
}

// PointerLeave handles the pointer leaving the canvas.
func (c *Controller) PointerLeave() State {
	c.state = Idle
	c.hovered = ""
	return c.state
}

// Click emits a navigation intent for the hovered node and returns to Idle.
// Clicking while idle does nothing.
func (c *Controller) Click() (NavigateToMerchant, bool) {
	if c.state != NodeHovered {
		return NavigateToMerchant{}, false
	}
	intent := NavigateToMerchant{MerchantID: c.hovered}
	c.state = Idle
	c.hovered = ""
	return intent, true
}

// hitTest returns the node nearest to the pointer whose hit radius, in world
// units, contains it.
func (c *Controller) hitTest(x, y float64) (string, bool) {
	if c.ring == nil || c.source == nil {
		return "", false
	}
	p := c.viewport.ToWorld(layout.Position{X: x, Y: y})
	best, bestDist := "", math.Inf(1)
	for _, n := range c.ring.Nodes() {
		pos, ok := c.source.Position(n.Key())
		if !ok {
			continue
		}
		d := math.Hypot(pos.X-p.X, pos.Y-p.Y)
		if d <= c.style.NodeRadius && d < bestDist {
			best, bestDist = n.Key(), d
		}
	}
	return best, best != ""
}
