// Package ring holds the validated, immutable graph model of a fraud ring.
package ring

import (
	"errors"
	"fmt"
	"math"

	"github.com/vanshika/fraudring/internal/domain"
)

// ErrMalformedRing matches every *MalformedRingError via errors.Is.
var ErrMalformedRing = errors.New("malformed fraud ring")

// MalformedRingError reports a ring payload that violates referential integrity.
type MalformedRingError struct {
	RingID    string
	EdgeIndex int // -1 when the problem is a node
	NodeID    string
	Reason    string
}

func (e *MalformedRingError) Error() string {
	if e.EdgeIndex >= 0 {
		return fmt.Sprintf("ring %q edge %d: %s (%s)", e.RingID, e.EdgeIndex, e.Reason, e.NodeID)
	}
	return fmt.Sprintf("ring %q: %s (%s)", e.RingID, e.Reason, e.NodeID)
}

func (e *MalformedRingError) Is(target error) bool {
	return target == ErrMalformedRing
}

// Ring is a fraud ring: a node set with unique ids and an edge set over it.
// A Ring is never modified after Build; callers rebuild to replace it.
type Ring struct {
	id           string
	declaredSize int
	truncated    bool
	nodes        []domain.MerchantNode
	edges        []domain.FraudLink
	index        map[string]int
}

// Build validates a payload and constructs a Ring from it.
func Build(p domain.RingPayload) (*Ring, error) {
	r := &Ring{
		id:           p.RingID,
		declaredSize: p.Size,
		truncated:    p.IsTruncated,
		nodes:        make([]domain.MerchantNode, 0, len(p.Nodes)),
		edges:        make([]domain.FraudLink, 0, len(p.Edges)),
		index:        make(map[string]int, len(p.Nodes)),
	}

	for _, n := range p.Nodes {
		key := n.Key()
		if key == "" {
			return nil, &MalformedRingError{RingID: p.RingID, EdgeIndex: -1, Reason: "node without id"}
		}
		if _, dup := r.index[key]; dup {
			return nil, &MalformedRingError{RingID: p.RingID, EdgeIndex: -1, NodeID: key, Reason: "duplicate node id"}
		}
		if n.MerchantID == "" {
			n.MerchantID = key
		}
		r.index[key] = len(r.nodes)
		r.nodes = append(r.nodes, n)
	}

	for i, e := range p.Edges {
		if _, ok := r.index[e.Source]; !ok {
			return nil, &MalformedRingError{RingID: p.RingID, EdgeIndex: i, NodeID: e.Source, Reason: "unknown source node"}
		}
		if _, ok := r.index[e.Target]; !ok {
			return nil, &MalformedRingError{RingID: p.RingID, EdgeIndex: i, NodeID: e.Target, Reason: "unknown target node"}
		}
		switch {
		case math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0:
			return nil, &MalformedRingError{RingID: p.RingID, EdgeIndex: i, NodeID: e.Source, Reason: fmt.Sprintf("invalid weight %v", e.Weight)}
		case e.Weight == 0:
			// the analytics service treats a missing weight as 1
			e.Weight = 1
		}
		r.edges = append(r.edges, e)
	}

	return r, nil
}

// BuildAll builds every payload, skipping malformed rings. The returned errors
// describe the skipped rings in payload order.
func BuildAll(payloads []domain.RingPayload) ([]*Ring, []error) {
	rings := make([]*Ring, 0, len(payloads))
	var skipped []error
	for _, p := range payloads {
		r, err := Build(p)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		rings = append(rings, r)
	}
	return rings, skipped
}

// ID returns the upstream ring id.
func (r *Ring) ID() string { return r.id }

// Size is the number of nodes in the ring.
func (r *Ring) Size() int { return len(r.nodes) }

// DeclaredSize is the member count reported upstream, which exceeds Size when
// the upstream truncated the ring for display.
func (r *Ring) DeclaredSize() int {
	if r.declaredSize > len(r.nodes) {
		return r.declaredSize
	}
	return len(r.nodes)
}

// Truncated reports whether the upstream trimmed the ring.
func (r *Ring) Truncated() bool { return r.truncated }

// Nodes returns the nodes in payload order.
func (r *Ring) Nodes() []domain.MerchantNode {
	return append([]domain.MerchantNode(nil), r.nodes...)
}

// Edges returns the edges in payload order.
func (r *Ring) Edges() []domain.FraudLink {
	return append([]domain.FraudLink(nil), r.edges...)
}

// Node looks up a node by merchant id.
func (r *Ring) Node(id string) (domain.MerchantNode, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.MerchantNode{}, false
	}
	return r.nodes[i], true
}

// Index returns the dense position of a node, stable for the life of the ring.
func (r *Ring) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// EdgeEndpoints returns the dense endpoint indices of edge i.
func (r *Ring) EdgeEndpoints(i int) (int, int) {
	e := r.edges[i]
	return r.index[e.Source], r.index[e.Target]
}

// Payload converts the ring back into its wire shape.
func (r *Ring) Payload() domain.RingPayload {
	members := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		members[i] = n.Key()
	}
	return domain.RingPayload{
		RingID:        r.id,
		Size:          r.DeclaredSize(),
		DisplayedSize: len(r.nodes),
		IsTruncated:   r.truncated,
		Members:       members,
		Nodes:         r.Nodes(),
		Edges:         r.Edges(),
	}
}

func sameNode(a, b domain.MerchantNode) bool {
	ak, bk := a.KYCVerified, b.KYCVerified
	a.KYCVerified, b.KYCVerified = nil, nil
	if a != b {
		return false
	}
	if ak == nil || bk == nil {
		return ak == bk
	}
	return *ak == *bk
}

type edgeKey struct {
	a, b   string
	reason string
}

func undirected(e domain.FraudLink) edgeKey {
	a, b := e.Source, e.Target
	if b < a {
		a, b = b, a
	}
	return edgeKey{a: a, b: b, reason: e.Reason}
}

// Equal reports whether two rings have the same node and edge sets, ignoring
// order and edge direction.
func Equal(a, b *Ring) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.id != b.id || len(a.nodes) != len(b.nodes) || len(a.edges) != len(b.edges) {
		return false
	}
	for _, n := range a.nodes {
		other, ok := b.Node(n.Key())
		if !ok || !sameNode(n, other) {
			return false
		}
	}
	counts := make(map[edgeKey][]float64, len(a.edges))
	for _, e := range a.edges {
		k := undirected(e)
		counts[k] = append(counts[k], e.Weight)
	}
	for _, e := range b.edges {
		k := undirected(e)
		weights := counts[k]
		found := -1
		for i, w := range weights {
			if w == e.Weight {
				found = i
				break
			}
		}
		if found < 0 {
			return false
		}
		counts[k] = append(weights[:found], weights[found+1:]...)
	}
	return true
}
