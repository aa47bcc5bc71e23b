package layout

import "math"

// Position is a 2-D coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is an axis-aligned bounding box in simulation space.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// BoundsOf returns the bounding box of the given positions. An empty slice
// yields a zero box.
func BoundsOf(points []Position) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range points {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Position {
	return Position{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Viewport maps simulation space onto a canvas: screen = world*Scale + Offset.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// ToScreen converts a simulation position into canvas coordinates.
func (v Viewport) ToScreen(p Position) Position {
	return Position{X: p.X*v.Scale + v.OffsetX, Y: p.Y*v.Scale + v.OffsetY}
}

// ToWorld converts canvas coordinates back into simulation space.
func (v Viewport) ToWorld(p Position) Position {
	s := v.Scale
	if s == 0 {
		s = 1
	}
	return Position{X: (p.X - v.OffsetX) / s, Y: (p.Y - v.OffsetY) / s}
}

// Fit computes the zoom-to-fit viewport: the box, grown by the node radius,
// is centred on a width x height canvas leaving padding on every side. The
// scale never exceeds maxZoom.
func Fit(b Bounds, width, height, padding, nodeRadius, maxZoom float64) Viewport {
	b.MinX -= nodeRadius
	b.MinY -= nodeRadius
	b.MaxX += nodeRadius
	b.MaxY += nodeRadius

	bw := math.Max(b.MaxX-b.MinX, 1e-9)
	bh := math.Max(b.MaxY-b.MinY, 1e-9)
	availW := math.Max(width-2*padding, 1)
	availH := math.Max(height-2*padding, 1)

	scale := math.Min(availW/bw, availH/bh)
	if maxZoom > 0 && scale > maxZoom {
		scale = maxZoom
	}

	c := b.Center()
	return Viewport{
		Width:   width,
		Height:  height,
		Scale:   scale,
		OffsetX: width/2 - c.X*scale,
		OffsetY: height/2 - c.Y*scale,
	}
}
