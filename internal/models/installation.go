package models

import "time"

// InstallationRecord is the persisted outcome of a successful, authorized OAuth
// installation. Attributes holds the provider response flattened one level
// (nested objects become parent_child keys) with the "ok" flag dropped.
// The access token doubles as the partition key; records are append-only.
type InstallationRecord struct {
	AccessToken string         `db:"access_token"`
	RequestUTC  string         `db:"request_utc"` // ISO-8601 UTC timestamp of the exchange
	Attributes  map[string]any `db:"attributes"`  // stored as JSONB
	CreatedAt   time.Time      `db:"created_at"`
}

// InstallationSummary is the ops-facing view of a record. The access token is
// redacted to a short prefix; the raw token never leaves the store through the
// ops surface.
type InstallationSummary struct {
	TokenPrefix string         `json:"token_prefix"`
	TeamID      string         `json:"team_id,omitempty"`
	TeamName    string         `json:"team_name,omitempty"`
	RequestUTC  string         `json:"request_utc"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}
