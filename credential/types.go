// Package credential implements the storage contract the request
// envelope uses to turn a bearer token into a provider connection and
// its resolved filter policy (spec.md §6, §7).
package credential

import "time"

// Credential is one issued bearer token's metadata. The bearer secret
// itself is never stored — only its hash (see HashBearer).
type Credential struct {
	ID           string
	ConnectionID string
	Revoked      bool
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

// Connection is a mailbox backend configuration: which provider type to
// construct and the opaque credentials it needs (OAuth tokens, an IMAP
// password, an API key — the shape is provider-specific).
type Connection struct {
	ID           string
	ProviderType string
	Credentials  map[string]string
}
