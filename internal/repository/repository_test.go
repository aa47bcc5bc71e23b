package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/graph"
)

func merchantRecord(id string, links ...map[string]any) graph.Record {
	raw := make([]any, len(links))
	for i, l := range links {
		raw[i] = l
	}
	return graph.Record{
		"merchant": map[string]any{
			"merchant_id":   id,
			"pan_hash":      "pan-" + id,
			"city":          "Mumbai",
			"merchant_tier": "Tier 1",
			"is_fraud":      int64(1),
		},
		"links": raw,
	}
}

func TestRingRepository_FetchRing(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		merchantRecord("M2", map[string]any{"target": "M3", "weight": float64(1), "reason": domain.ReasonSharedIP}),
		merchantRecord("M1", map[string]any{"target": "M2", "weight": int64(3), "reason": domain.ReasonSharedPAN}),
		merchantRecord("M3"),
	}})
	repo := New(mem)

	ring, err := repo.FetchRing(context.Background(), " ring_1 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.ReadCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 read query, got %d", len(calls))
	}
	if calls[0].Params["ringId"] != "ring_1" {
		t.Fatalf("expected trimmed ring id param, got %v", calls[0].Params["ringId"])
	}
	if !strings.Contains(calls[0].Query, "LINKED") {
		t.Fatalf("expected LINKED traversal in query")
	}

	if diff := cmp.Diff([]string{"M1", "M2", "M3"}, ring.Members); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
	if ring.Size != 3 || ring.DisplayedSize != 3 {
		t.Fatalf("expected size 3, got %d/%d", ring.Size, ring.DisplayedSize)
	}
	wantEdges := []domain.FraudLink{
		{Source: "M2", Target: "M3", Weight: 1, Reason: domain.ReasonSharedIP},
		{Source: "M1", Target: "M2", Weight: 3, Reason: domain.ReasonSharedPAN},
	}
	if diff := cmp.Diff(wantEdges, ring.Edges); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
	first := ring.Nodes[0]
	if first.PANHash != "pan-M1" || first.City != "Mumbai" || first.Tier != "Tier 1" {
		t.Fatalf("unexpected node %+v", first)
	}
	if first.IsFraud != domain.FraudConfirmed {
		t.Fatalf("expected confirmed fraud flag, got %v", first.IsFraud)
	}
}

func TestRingRepository_FetchRingNotFound(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	_, err := repo.FetchRing(context.Background(), "ring_404")
	if !errors.Is(err, ErrRingNotFound) {
		t.Fatalf("expected ErrRingNotFound, got %v", err)
	}

	if _, err := repo.FetchRing(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank ring id")
	}
	if len(mem.ReadCalls()) != 1 {
		t.Fatalf("blank ring id must not reach the graph")
	}
}

func TestRingRepository_FetchRingWrapsClientError(t *testing.T) {
	boom := errors.New("bolt: connection reset")
	repo := New(graph.NewMemoryClient().WithError(boom))

	_, err := repo.FetchRing(context.Background(), "ring_1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ring_1") {
		t.Fatalf("expected ring id in error, got %q", err.Error())
	}
}

func TestRingRepository_FraudFlagFromGraph(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want domain.FraudFlag
	}{
		{"missing", nil, domain.FraudUnknown},
		{"bool true", true, domain.FraudConfirmed},
		{"bool false", false, domain.FraudLegitimate},
		{"integer zero", int64(0), domain.FraudLegitimate},
		{"integer one", int64(1), domain.FraudConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := merchantFromMap(map[string]any{"merchant_id": "M1", "is_fraud": tc.raw})
			if node.IsFraud != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, node.IsFraud)
			}
		})
	}
}

func TestRingRepository_ListRingIDs(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"ring_id": "ring_2", "size": int64(12)},
		{"ring_id": nil, "size": int64(4)},
		{"ring_id": "ring_1", "size": int64(3)},
	}})
	repo := New(mem)

	got, err := repo.ListRingIDs(context.Background(), 500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []RingSummary{{RingID: "ring_2", Size: 12}, {RingID: "ring_1", Size: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}
	if limit := mem.ReadCalls()[0].Params["limit"]; limit != int64(maxListLimit) {
		t.Fatalf("expected limit clamped to %d, got %v", maxListLimit, limit)
	}
}

func TestRingRepository_TopRingsKeepsListOrder(t *testing.T) {
	mem := graph.NewMemoryClient().WithReadFunc(func(cypher string, params map[string]any) (graph.Result, error) {
		if cypher == listRingsCypher {
			return graph.Result{Records: []graph.Record{
				{"ring_id": "ring_c", "size": int64(3)},
				{"ring_id": "ring_a", "size": int64(2)},
				{"ring_id": "ring_b", "size": int64(1)},
			}}, nil
		}
		id := params["ringId"].(string)
		return graph.Result{Records: []graph.Record{merchantRecord(id + "-M1")}}, nil
	})
	repo := New(mem)

	rings, err := repo.TopRings(context.Background(), 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var ids []string
	for _, r := range rings {
		ids = append(ids, r.RingID)
	}
	if diff := cmp.Diff([]string{"ring_c", "ring_a", "ring_b"}, ids); diff != "" {
		t.Fatalf("ring order mismatch (-want +got):\n%s", diff)
	}
}

func TestRingRepository_FetchRingsStopsOnFailure(t *testing.T) {
	mem := graph.NewMemoryClient().WithReadFunc(func(_ string, params map[string]any) (graph.Result, error) {
		if params["ringId"] == "ring_missing" {
			return graph.Result{}, nil
		}
		return graph.Result{Records: []graph.Record{merchantRecord(fmt.Sprint(params["ringId"]))}}, nil
	})
	repo := New(mem)

	_, err := repo.FetchRings(context.Background(), []string{"ring_1", "ring_missing", "ring_2"}, 2)
	if !errors.Is(err, ErrRingNotFound) {
		t.Fatalf("expected ErrRingNotFound, got %v", err)
	}
}
