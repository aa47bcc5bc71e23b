package layout

// Config tunes the force simulation. Zero fields take the defaults of
// DefaultConfig.
type Config struct {
	Width  float64
	Height float64
	// IdealLength is the rest length of every link.
	IdealLength float64
	// Repulsion scales the inverse-square force between every node pair.
	Repulsion float64
	// Attraction scales the spring force of a link, multiplied by its weight.
	Attraction float64
	// Damping multiplies velocity each tick; must be in (0, 1).
	Damping float64
	// MaxForce caps the magnitude of the net force on a node per tick.
	MaxForce float64
	// MinDistance floors the pair distance used by the repulsion term.
	MinDistance float64
	// MaxTicks is the tick budget after which the simulation settles regardless.
	MaxTicks int
	// Epsilon settles the simulation early once no node moved further in a
	// tick. A negative value disables early settlement.
	Epsilon    float64
	Padding    float64
	NodeRadius float64
	MaxZoom    float64
	Seed       int64
}

// DefaultConfig mirrors the reference renderer: 800x600 canvas, 100-tick cooldown.
func DefaultConfig() Config {
	return Config{
		Width:       800,
		Height:      600,
		IdealLength: 30,
		Repulsion:   3000,
		Attraction:  0.05,
		Damping:     0.6,
		MaxForce:    10,
		MinDistance: 10,
		MaxTicks:    100,
		Epsilon:     0.01,
		Padding:     20,
		NodeRadius:  5,
		MaxZoom:     8,
	}
}

// WithDefaults fills zero or out-of-range fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.IdealLength <= 0 {
		c.IdealLength = d.IdealLength
	}
	if c.Repulsion <= 0 {
		c.Repulsion = d.Repulsion
	}
	if c.Attraction <= 0 {
		c.Attraction = d.Attraction
	}
	if c.Damping <= 0 || c.Damping >= 1 {
		c.Damping = d.Damping
	}
	if c.MaxForce <= 0 {
		c.MaxForce = d.MaxForce
	}
	if c.MinDistance <= 0 {
		c.MinDistance = d.MinDistance
	}
	if c.MaxTicks <= 0 {
		c.MaxTicks = d.MaxTicks
	}
	if c.Epsilon == 0 {
		c.Epsilon = d.Epsilon
	}
	if c.Padding == 0 {
		c.Padding = d.Padding
	}
	if c.Padding < 0 || 2*c.Padding >= c.Width || 2*c.Padding >= c.Height {
		c.Padding = 0
	}
	if c.NodeRadius <= 0 {
		c.NodeRadius = d.NodeRadius
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = d.MaxZoom
	}
	return c
}
