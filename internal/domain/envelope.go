package domain

// Envelope is the uniform response shape of the gateway. Failures always carry
// Success=false and Error; Details is optional.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// AnalyticsSummary is the payload of the analytics summary endpoint.
type AnalyticsSummary struct {
	SearchesLast24h int      `json:"searches_last_24h"`
	RecentSearches  []string `json:"recent_searches"`
}

// Failure builds a failure envelope.
func Failure(msg string, details any) Envelope {
	return Envelope{Success: false, Error: msg, Details: details}
}
