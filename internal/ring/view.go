package ring

import (
	"errors"

	"github.com/vanshika/fraudring/internal/domain"
)

// RankedSimilar is a similar-fraud entry with its 1-based position in the
// upstream ranking.
type RankedSimilar struct {
	Rank int `json:"rank"`
	domain.SimilarFraudEntry
}

// View is the aggregated merchant view: the merchant, its ring if it belongs
// to one, and the similar-fraud ranking.
type View struct {
	Merchant domain.MerchantNode
	Ring     *Ring
	// RingError is set when the upstream sent a ring that could not be built.
	RingError error
	Similar   []RankedSimilar
}

// BuildView composes a View from a merchant detail payload. A malformed ring is
// dropped and reported through RingError rather than failing the whole view.
func BuildView(d domain.MerchantDetails) (*View, error) {
	if d.Merchant.Key() == "" {
		return nil, errors.New("merchant detail payload has no merchant id")
	}

	v := &View{
		Merchant: d.Merchant,
		Similar:  Rank(d.SimilarFrauds),
	}

	if d.FraudRing != nil {
		r, err := Build(*d.FraudRing)
		if err != nil {
			v.RingError = err
		} else {
			v.Ring = r
		}
	}

	return v, nil
}

// Rank assigns positional ranks. The upstream order is authoritative and is
// preserved as-is.
func Rank(entries []domain.SimilarFraudEntry) []RankedSimilar {
	ranked := make([]RankedSimilar, len(entries))
	for i, e := range entries {
		ranked[i] = RankedSimilar{Rank: i + 1, SimilarFraudEntry: e}
	}
	return ranked
}
