package generator

// Config drives the synthetic ring generator.
type Config struct {
	NumRings int
	MinSize  int
	MaxSize  int
	// MaxDisplayed caps the members sent per ring; larger rings are truncated.
	MaxDisplayed int
	// ExtraLinkChance is the probability of linking two members beyond the
	// spanning chain that keeps every ring connected.
	ExtraLinkChance float64
	Seed            int64
}

// DefaultConfig returns settings that resemble the analytics service's top-ten
// ring listing.
func DefaultConfig() Config {
	return Config{
		NumRings:        10,
		MinSize:         3,
		MaxSize:         40,
		MaxDisplayed:    100,
		ExtraLinkChance: 0.08,
		Seed:            42,
	}
}
