package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/graph"
)

// ErrRingNotFound is returned when the graph holds no merchant for a ring id.
var ErrRingNotFound = errors.New("fraud ring not found")

const (
	defaultListLimit   = 10
	maxListLimit       = 100
	defaultConcurrency = 4
)

// RingSummary is a ring id with its member count.
type RingSummary struct {
	RingID string `json:"ring_id"`
	Size   int    `json:"size"`
}

// RingRepository reads fraud rings stored as
// (:Merchant {ring_id})-[:LINKED {weight, reason}]->(:Merchant).
type RingRepository struct {
	client graph.Client
}

// New instantiates a RingRepository backed by the supplied graph client.
func New(client graph.Client) *RingRepository {
	return &RingRepository{client: client}
}

// ListRingIDs returns up to limit rings, largest first.
func (r *RingRepository) ListRingIDs(ctx context.Context, limit int) ([]RingSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	res, err := r.client.ExecuteRead(ctx, listRingsCypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("list fraud rings: %w", err)
	}

	out := make([]RingSummary, 0, len(res.Records))
	for _, rec := range res.Records {
		id := toString(rec["ring_id"])
		if id == "" {
			continue
		}
		out = append(out, RingSummary{RingID: id, Size: int(toInt64(rec["size"]))})
	}
	return out, nil
}

// FetchRing loads one ring with its members and links. Members come back
// sorted by merchant id; links keep the order the graph returned them in.
func (r *RingRepository) FetchRing(ctx context.Context, ringID string) (domain.RingPayload, error) {
	ringID = strings.TrimSpace(ringID)
	if ringID == "" {
		return domain.RingPayload{}, errors.New("ring id is required")
	}

	res, err := r.client.ExecuteRead(ctx, fetchRingCypher, map[string]any{"ringId": ringID})
	if err != nil {
		return domain.RingPayload{}, fmt.Errorf("fetch fraud ring %s: %w", ringID, err)
	}
	if len(res.Records) == 0 {
		return domain.RingPayload{}, fmt.Errorf("fetch fraud ring %s: %w", ringID, ErrRingNotFound)
	}

	payload := domain.RingPayload{
		RingID: ringID,
		Nodes:  make([]domain.MerchantNode, 0, len(res.Records)),
		Edges:  []domain.FraudLink{},
	}
	for _, rec := range res.Records {
		node := merchantFromMap(asMap(rec["merchant"]))
		if node.MerchantID == "" {
			continue
		}
		payload.Nodes = append(payload.Nodes, node)

		links, _ := rec["links"].([]any)
		for _, raw := range links {
			link := asMap(raw)
			target := toString(link["target"])
			if target == "" {
				continue
			}
			payload.Edges = append(payload.Edges, domain.FraudLink{
				Source: node.MerchantID,
				Target: target,
				Weight: toFloat64(link["weight"]),
				Reason: toString(link["reason"]),
			})
		}
	}
	if len(payload.Nodes) == 0 {
		return domain.RingPayload{}, fmt.Errorf("fetch fraud ring %s: %w", ringID, ErrRingNotFound)
	}

	sort.Slice(payload.Nodes, func(i, j int) bool {
		return payload.Nodes[i].MerchantID < payload.Nodes[j].MerchantID
	})
	payload.Size = len(payload.Nodes)
	payload.DisplayedSize = len(payload.Nodes)
	payload.Members = make([]string, len(payload.Nodes))
	for i, n := range payload.Nodes {
		payload.Members[i] = n.MerchantID
	}
	return payload, nil
}

// FetchRings loads several rings concurrently, at most concurrency at a time.
// Results follow the order of ids; the first failure cancels the rest.
func (r *RingRepository) FetchRings(ctx context.Context, ids []string, concurrency int) ([]domain.RingPayload, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	out := make([]domain.RingPayload, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := r.FetchRing(gctx, id)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TopRings lists the largest rings and loads each of them.
func (r *RingRepository) TopRings(ctx context.Context, limit int) ([]domain.RingPayload, error) {
	summaries, err := r.ListRingIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.RingID
	}
	return r.FetchRings(ctx, ids, defaultConcurrency)
}

func merchantFromMap(m map[string]any) domain.MerchantNode {
	node := domain.MerchantNode{
		MerchantID: toString(m["merchant_id"]),
		PANHash:    toString(m["pan_hash"]),
		DeviceHash: toString(m["device_id_hash"]),
		IPHash:     toString(m["ip_hash"]),
		City:       toString(m["city"]),
		Tier:       domain.Tier(toString(m["merchant_tier"])),
		Category:   toString(m["merchant_category"]),
	}
	switch v := m["is_fraud"].(type) {
	case nil:
	case bool:
		node.IsFraud = domain.FraudLegitimate
		if v {
			node.IsFraud = domain.FraudConfirmed
		}
	default:
		node.IsFraud = domain.FraudLegitimate
		if toInt64(v) != 0 {
			node.IsFraud = domain.FraudConfirmed
		}
	}
	return node
}

func asMap(val any) map[string]any {
	m, _ := val.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

const listRingsCypher = `
MATCH (m:Merchant)
WHERE m.ring_id IS NOT NULL
RETURN m.ring_id AS ring_id, count(m) AS size
ORDER BY size DESC, ring_id ASC
LIMIT $limit
`

const fetchRingCypher = `
MATCH (m:Merchant {ring_id: $ringId})
OPTIONAL MATCH (m)-[l:LINKED]->(o:Merchant {ring_id: $ringId})
WITH m, collect(CASE WHEN o IS NULL THEN NULL ELSE {target: o.merchant_id, weight: l.weight, reason: l.reason} END) AS links
RETURN m {
  .merchant_id, .pan_hash, .device_id_hash, .ip_hash, .city,
  .merchant_tier, .merchant_category, .is_fraud
} AS merchant, links
ORDER BY m.merchant_id
`
