package service

import "errors"

// Failure messages of the gateway envelopes.
const (
	MsgFetchRingsFailed   = "Failed to fetch fraud rings"
	MsgSearchFailed       = "Search failed"
	MsgDetailsFailed      = "Failed to fetch merchant details"
	MsgMerchantIDRequired = "Merchant ID is required"
	MsgLayoutFailed       = "Failed to lay out fraud rings"
	MsgMalformedRing      = "Malformed fraud ring"
)

// ValidationError reports missing or malformed client input. It is always
// answered with 400 before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
