package service

import (
	"context"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/ring"
	"github.com/vanshika/fraudring/internal/upstream"
)

// Analytics is the upstream contract required by the gateway.
type Analytics interface {
	TopFraudRings(ctx context.Context) (upstream.Response, error)
	Search(ctx context.Context, merchantID string) (upstream.Response, error)
	MerchantDetails(ctx context.Context, merchantID string) (upstream.Response, error)
}

// Reply is a fully decided HTTP answer: the transport writes Status and the
// JSON encoding of Body verbatim.
type Reply struct {
	Status int
	Body   any
}

// MerchantView is the body of the merchant view endpoint.
type MerchantView struct {
	Success       bool                 `json:"success"`
	Merchant      domain.MerchantNode  `json:"merchant"`
	FraudRing     *domain.RingPayload  `json:"fraud_ring,omitempty"`
	RingError     string               `json:"ring_error,omitempty"`
	SimilarFrauds []ring.RankedSimilar `json:"similar_frauds"`
	Layout        *layout.Result       `json:"layout,omitempty"`
}

// RingLayout pairs a ring with its settled layout.
type RingLayout struct {
	Ring   domain.RingPayload `json:"ring"`
	Layout layout.Result      `json:"layout"`
}

// SkippedRing reports a ring that could not be laid out.
type SkippedRing struct {
	RingID string `json:"ring_id,omitempty"`
	Error  string `json:"error"`
}

// RingLayouts is the body of the top-rings layout endpoint.
type RingLayouts struct {
	Success bool          `json:"success"`
	Rings   []RingLayout  `json:"rings"`
	Skipped []SkippedRing `json:"skipped"`
}

// LayoutBody is the body of a single-ring layout.
type LayoutBody struct {
	Success bool          `json:"success"`
	RingID  string        `json:"ring_id"`
	Layout  layout.Result `json:"layout"`
}
