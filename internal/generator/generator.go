package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/vanshika/fraudring/internal/domain"
)

// Generator produces synthetic fraud rings shaped like the analytics service
// output: merchants linked because they share a card, a device or an IP.
type Generator struct {
	cfg       Config
	rand      *rand.Rand
	fragments fragments
	next      int
}

// New returns a configured Generator. The same seed always yields the same
// rings.
func New(cfg Config) *Generator {
	d := DefaultConfig()
	if cfg.NumRings <= 0 {
		cfg.NumRings = d.NumRings
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = d.MinSize
	}
	if cfg.MaxSize < cfg.MinSize {
		cfg.MaxSize = cfg.MinSize
	}
	if cfg.MaxDisplayed <= 0 {
		cfg.MaxDisplayed = d.MaxDisplayed
	}
	if cfg.ExtraLinkChance < 0 || cfg.ExtraLinkChance > 1 {
		cfg.ExtraLinkChance = d.ExtraLinkChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = d.Seed
	}

	return &Generator{
		cfg:       cfg,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
		fragments: defaultFragments(),
	}
}

// Generate synthesises the configured number of rings, largest first. It
// respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]domain.RingPayload, error) {
	sizes := make([]int, g.cfg.NumRings)
	for i := range sizes {
		sizes[i] = g.cfg.MinSize + g.rand.Intn(g.cfg.MaxSize-g.cfg.MinSize+1)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))

	rings := make([]domain.RingPayload, 0, len(sizes))
	for i, size := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rings = append(rings, g.ring(fmt.Sprintf("ring_%d", i), size))
	}
	return rings, nil
}

// TopRings wraps generated rings in the top-rings envelope.
func (g *Generator) TopRings(ctx context.Context) (domain.TopRingsResponse, error) {
	rings, err := g.Generate(ctx)
	if err != nil {
		return domain.TopRingsResponse{}, err
	}
	return domain.TopRingsResponse{Success: true, Rings: rings}, nil
}

type sharedAttrs struct {
	pan, device, ip string
}

func (g *Generator) ring(id string, size int) domain.RingPayload {
	displayed := size
	if displayed > g.cfg.MaxDisplayed {
		displayed = g.cfg.MaxDisplayed
	}

	// a handful of cards, devices and IPs reused across the ring
	pool := make([]sharedAttrs, 1+size/4)
	for i := range pool {
		pool[i] = sharedAttrs{pan: g.hash("pan"), device: g.hash("dev"), ip: g.hash("ip")}
	}

	nodes := make([]domain.MerchantNode, displayed)
	attrs := make([]sharedAttrs, displayed)
	members := make([]string, displayed)
	for i := range nodes {
		g.next++
		merchantID := fmt.Sprintf("MER-%06d", g.next)
		a := sharedAttrs{pan: g.hash("pan"), device: g.hash("dev"), ip: g.hash("ip")}
		shared := pool[g.rand.Intn(len(pool))]
		switch g.rand.Intn(3) {
		case 0:
			a.pan = shared.pan
		case 1:
			a.device = shared.device
		default:
			a.ip = shared.ip
		}
		attrs[i] = a
		members[i] = merchantID
		nodes[i] = domain.MerchantNode{
			NodeID:     merchantID,
			MerchantID: merchantID,
			PANHash:    a.pan,
			DeviceHash: a.device,
			IPHash:     a.ip,
			City:       g.pick(g.fragments.cities),
			Tier:       domain.Tier(fmt.Sprintf("TIER_%d", 1+g.rand.Intn(3))),
			Category:   g.pick(g.fragments.categories),
			IsFraud:    domain.FraudConfirmed,
		}
	}

	edges := make([]domain.FraudLink, 0, displayed)
	for i := 1; i < displayed; i++ {
		edges = append(edges, g.link(members, attrs, g.rand.Intn(i), i))
	}
	for i := 0; i < displayed; i++ {
		for j := i + 2; j < displayed; j++ {
			if g.rand.Float64() < g.cfg.ExtraLinkChance {
				edges = append(edges, g.link(members, attrs, i, j))
			}
		}
	}

	return domain.RingPayload{
		RingID:        id,
		Size:          size,
		DisplayedSize: displayed,
		IsTruncated:   displayed < size,
		Members:       members,
		Nodes:         nodes,
		Edges:         edges,
	}
}

// link connects members i and j. The weight counts the attributes they share,
// at least one; the reason names the first shared attribute.
func (g *Generator) link(members []string, attrs []sharedAttrs, i, j int) domain.FraudLink {
	a, b := attrs[i], attrs[j]
	var reasons []string
	if a.pan == b.pan {
		reasons = append(reasons, domain.ReasonSharedPAN)
	}
	if a.device == b.device {
		reasons = append(reasons, domain.ReasonSharedDevice)
	}
	if a.ip == b.ip {
		reasons = append(reasons, domain.ReasonSharedIP)
	}
	if len(reasons) == 0 {
		reasons = []string{g.pick([]string{domain.ReasonSharedPAN, domain.ReasonSharedDevice, domain.ReasonSharedIP})}
	}
	return domain.FraudLink{
		Source: members[i],
		Target: members[j],
		Weight: float64(len(reasons)),
		Reason: reasons[0],
	}
}

func (g *Generator) hash(prefix string) string {
	return fmt.Sprintf("%s_%012x", prefix, g.rand.Int63()&0xffffffffffff)
}

func (g *Generator) pick(options []string) string {
	return options[g.rand.Intn(len(options))]
}

type fragments struct {
	cities     []string
	categories []string
}

func defaultFragments() fragments {
	return fragments{
		cities:     []string{"Mumbai", "Delhi", "Bengaluru", "Hyderabad", "Pune", "Chennai", "Kolkata", "Jaipur", "Surat", "Lucknow"},
		categories: []string{"ELECTRONICS", "APPAREL", "TRAVEL", "GAMING", "GROCERY", "JEWELLERY"},
	}
}
