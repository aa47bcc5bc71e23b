package domain

// Link reasons emitted by the analytics service.
const (
	ReasonSharedPAN    = "shared_pan"
	ReasonSharedDevice = "shared_device"
	ReasonSharedIP     = "shared_ip"
)

// FraudLink is an edge between two merchants of a ring. Source and target are
// stored in payload order but are undirected for layout purposes.
type FraudLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason,omitempty"`
}

// RingPayload is the wire shape of a fraud ring.
type RingPayload struct {
	RingID        string         `json:"ring_id"`
	Size          int            `json:"size,omitempty"`
	DisplayedSize int            `json:"displayed_size,omitempty"`
	IsTruncated   bool           `json:"is_truncated,omitempty"`
	Members       []string       `json:"members,omitempty"`
	Nodes         []MerchantNode `json:"nodes"`
	Edges         []FraudLink    `json:"edges"`
}

// TopRingsResponse is the body of GET /api/top-fraud-rings.
type TopRingsResponse struct {
	Success bool          `json:"success"`
	Rings   []RingPayload `json:"rings"`
	Error   string        `json:"error,omitempty"`
}

// MerchantDetails is the body of GET /api/merchant/{id} and POST /api/search.
type MerchantDetails struct {
	Success       bool                `json:"success"`
	Merchant      MerchantNode        `json:"merchant"`
	FraudRing     *RingPayload        `json:"fraud_ring,omitempty"`
	SimilarFrauds []SimilarFraudEntry `json:"similar_frauds,omitempty"`
	Error         string              `json:"error,omitempty"`
}
