package server

// ScanRequest is the payload of POST /api/scan.
type ScanRequest struct {
	URL string `json:"url" example:"https://example.com"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"a scan is already in progress"`

	// Reason classifies validation failures, e.g. "empty".
	Reason string `json:"reason,omitempty" example:"empty"`

	// Details carries the underlying error of a failed history query.
	Details string `json:"details,omitempty"`
}

// CheckResponse describes one check of the label dictionary served by GET /api/checks.
type CheckResponse struct {
	Name           string `json:"name" example:"Header of hsts"`
	Label          string `json:"label" example:"HSTS Header"`
	Recommendation string `json:"recommendation,omitempty"`
	PresenceIsGood bool   `json:"presence_is_good"`
}
