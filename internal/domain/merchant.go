package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Tier is the merchant tier label assigned upstream (TIER_1..TIER_N). Unknown
// labels are preserved verbatim.
type Tier string

const tierPrefix = "TIER_"

// Level extracts the numeric part of a TIER_n label.
func (t Tier) Level() (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(string(t)))
	if !strings.HasPrefix(s, tierPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(tierPrefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FraudFlag is a tri-state fraud label. The zero value is FraudUnknown so that
// payloads omitting is_fraud decode as unknown.
type FraudFlag int8

const (
	FraudUnknown FraudFlag = iota
	FraudLegitimate
	FraudConfirmed
)

func (f FraudFlag) String() string {
	switch f {
	case FraudConfirmed:
		return "fraud"
	case FraudLegitimate:
		return "legitimate"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the flag the way the analytics service does: 1, 0 or null.
func (f FraudFlag) MarshalJSON() ([]byte, error) {
	switch f {
	case FraudConfirmed:
		return []byte("1"), nil
	case FraudLegitimate:
		return []byte("0"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, booleans and null.
func (f *FraudFlag) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	switch raw {
	case "null", "":
		*f = FraudUnknown
		return nil
	case "true":
		*f = FraudConfirmed
		return nil
	case "false":
		*f = FraudLegitimate
		return nil
	}
	v, err := strconv.ParseFloat(strings.Trim(raw, `"`), 64)
	if err != nil {
		return fmt.Errorf("invalid is_fraud value %s", raw)
	}
	if v != 0 {
		*f = FraudConfirmed
	} else {
		*f = FraudLegitimate
	}
	return nil
}

// MerchantNode describes a merchant as delivered by the analytics service. Ring
// payloads carry a subset of the fields; the per-merchant endpoint fills all of them.
type MerchantNode struct {
	NodeID            string    `json:"id,omitempty"`
	MerchantID        string    `json:"merchant_id"`
	PANHash           string    `json:"pan_hash,omitempty"`
	DeviceHash        string    `json:"device_id_hash,omitempty"`
	IPHash            string    `json:"ip_hash,omitempty"`
	City              string    `json:"city,omitempty"`
	Tier              Tier      `json:"merchant_tier,omitempty"`
	Category          string    `json:"merchant_category,omitempty"`
	IsFraud           FraudFlag `json:"is_fraud"`
	KYCVerified       *int      `json:"is_kyc_verified,omitempty"`
	TotalTxns90d      int64     `json:"total_txns_90d"`
	AvgTxnValue       float64   `json:"avg_txn_value"`
	ChargebackRate    float64   `json:"chargeback_rate"`
	RefundRatio       float64   `json:"refund_ratio"`
	SharedPANCount    int       `json:"shared_pan_count"`
	SharedDeviceCount int       `json:"shared_device_count"`
	SharedIPCount     int       `json:"shared_ip_count"`
}

// Key returns the identifier edges refer to: merchant_id, falling back to id.
func (m MerchantNode) Key() string {
	if m.MerchantID != "" {
		return m.MerchantID
	}
	return m.NodeID
}

// KYC reports the KYC verification flag and whether the upstream supplied it.
func (m MerchantNode) KYC() (verified, known bool) {
	if m.KYCVerified == nil {
		return false, false
	}
	return *m.KYCVerified != 0, true
}

// SimilarFraudEntry is one result of the upstream similarity search.
type SimilarFraudEntry struct {
	MerchantNode
	SimilarityScore float64 `json:"similarity_score"`
}
