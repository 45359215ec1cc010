package models

// --- Response Structs ---

// CommandReply is the immediate slash-command response body. Slash replies are
// always exactly these two fields, so this does not reuse a larger message
// struct with optional extras.
type CommandReply struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OAuthEnvelope mirrors the proxy-style response shape of the install callback:
// the body carries the user-facing message as a JSON-encoded string.
type OAuthEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ListInstallationsResponse is the ops surface's listing payload.
type ListInstallationsResponse struct {
	Installations []InstallationSummary `json:"installations"`
	Count         int                   `json:"count"`
}
