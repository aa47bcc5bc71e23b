package interaction

import "net/url"

// NavigateToMerchant asks the host to open the detail view of a merchant.
// Only the merchant id identifies the target.
type NavigateToMerchant struct {
	MerchantID string `json:"merchant_id"`
}

// Path is the dashboard route of the merchant page.
func (n NavigateToMerchant) Path() string {
	return "/merchant/" + url.PathEscape(n.MerchantID)
}

// APIPath is the gateway route serving the merchant details.
func (n NavigateToMerchant) APIPath() string {
	return "/api/merchant/" + url.PathEscape(n.MerchantID)
}
