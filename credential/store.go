package credential

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/agentcloak/mailproxy/types"
)

// Store is the read surface the request envelope needs, plus the
// provisioning call an operator uses to issue new bearer tokens.
type Store interface {
	// ResolveCredential looks up a credential by the hash of its bearer
	// secret. It returns an error if no such credential exists.
	ResolveCredential(ctx context.Context, bearerHash string) (Credential, error)
	// GetConnection returns the provider configuration a credential
	// references.
	GetConnection(ctx context.Context, connectionID string) (Connection, error)
	// GetFilterConfig returns the connection's stored policy, or nil if
	// none has been configured (the pipeline then uses all-enabled
	// defaults — spec.md §9 "configuration absence vs defaults").
	GetFilterConfig(ctx context.Context, connectionID string) (*types.FilterConfig, error)
	// TouchCredentialLastUsed records that a credential was just used.
	// Callers treat failure here as best-effort (spec.md §4.7).
	TouchCredentialLastUsed(ctx context.Context, credentialID string) error
	// CreateCredential issues a new bearer secret for connectionID and
	// returns the credential id alongside the opaque bearer string the
	// caller must present on future requests.
	CreateCredential(ctx context.Context, connectionID string) (id string, bearer string, err error)
	Close() error
}

// BearerPrefix is the fixed 3-character prefix every valid bearer
// string must start with (spec.md §6); other prefixes are rejected
// before a hash lookup is even attempted.
const BearerPrefix = "ac_"

// HashBearer derives the lookup key stored alongside a credential. A
// plain one-way hash is used rather than a salted, slow KDF (bcrypt,
// scrypt) because the storage contract requires an exact-match lookup
// by hash, not a per-credential verify call.
func HashBearer(bearer string) string {
	sum := blake2b.Sum256([]byte(bearer))
	return hex.EncodeToString(sum[:])
}
