package interaction

import (
	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/layout"
)

// Label is text drawn next to a node.
type Label struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	FontSize float64 `json:"font_size"`
}

// NodeSprite is one node in canvas coordinates.
type NodeSprite struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Hovered bool    `json:"hovered,omitempty"`
	Label   *Label  `json:"label,omitempty"`
}

// LinkSprite is one edge in canvas coordinates. Width is the edge weight.
type LinkSprite struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Reason string  `json:"reason,omitempty"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Color  string  `json:"color"`
}

// Tooltip describes the hovered merchant.
type Tooltip struct {
	MerchantID string      `json:"merchant_id"`
	PANHash    string      `json:"pan_hash"`
	Tier       domain.Tier `json:"merchant_tier"`
	City       string      `json:"city"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
}

// Frame is everything a renderer needs to draw one picture of the ring.
type Frame struct {
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	State    State           `json:"state"`
	Viewport layout.Viewport `json:"viewport"`
	Nodes    []NodeSprite    `json:"nodes"`
	Links    []LinkSprite    `json:"links"`
	Tooltip  *Tooltip        `json:"tooltip,omitempty"`
}

// Frame renders the bound ring at the current positions. Nodes whose position
// is unknown are left out together with their links.
func (c *Controller) Frame() Frame {
	f := Frame{
		Width:    c.width,
		Height:   c.height,
		State:    c.state,
		Viewport: c.viewport,
		Nodes:    []NodeSprite{},
		Links:    []LinkSprite{},
	}
	if c.ring == nil || c.source == nil {
		return f
	}

	screen := make(map[string]layout.Position, c.ring.Size())
	for _, n := range c.ring.Nodes() {
		id := n.Key()
		pos, ok := c.source.Position(id)
		if !ok {
			continue
		}
		s := c.viewport.ToScreen(pos)
		screen[id] = s

		sprite := NodeSprite{
			ID:      id,
			X:       s.X,
			Y:       s.Y,
			Radius:  c.style.NodeRadius * c.viewport.Scale,
			Color:   c.style.NodeColor,
			Opacity: c.style.Opacity,
		}
		if c.state == NodeHovered && id == c.hovered {
			sprite.Hovered = true
			sprite.Color = c.style.HoverColor
			sprite.Label = &Label{
				Text:     id,
				X:        s.X,
				Y:        s.Y - c.style.LabelOffset*c.viewport.Scale,
				Color:    c.style.LabelColor,
				FontSize: c.style.LabelFontSize,
			}
			f.Tooltip = &Tooltip{
				MerchantID: id,
				PANHash:    n.PANHash,
				Tier:       n.Tier,
				City:       n.City,
				X:          s.X,
				Y:          s.Y,
			}
		}
		f.Nodes = append(f.Nodes, sprite)
	}

	for _, e := range c.ring.Edges() {
		a, okA := screen[e.Source]
		b, okB := screen[e.Target]
		if !okA || !okB {
			continue
		}
		f.Links = append(f.Links, LinkSprite{
			Source: e.Source,
			Target: e.Target,
			Reason: e.Reason,
			X1:     a.X,
			Y1:     a.Y,
			X2:     b.X,
			Y2:     b.Y,
			Width:  e.Weight,
			Color:  c.style.LinkColor,
		})
	}
	return f
}
