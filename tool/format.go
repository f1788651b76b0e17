package tool

import (
	"regexp"
	"strings"

	"github.com/agentcloak/mailproxy/types"
)

var looksLikeEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// formatAddress implements the shared address-display rule (spec.md
// §4.6): with email redaction on, show the trimmed display name unless
// it is empty or itself looks like an email address, in which case
// fall back to a fixed placeholder. With redaction off, show both name
// and address.
func formatAddress(addr types.EmailAddress, emailRedactionEnabled bool) string {
	name := strings.TrimSpace(addr.Name)
	if !emailRedactionEnabled {
		if name == "" {
			return addr.Email
		}
		return name + " <" + addr.Email + ">"
	}
	if name == "" || looksLikeEmail.MatchString(name) {
		return "[Name Unavailable]"
	}
	return name
}

func formatAddresses(addrs []types.EmailAddress, emailRedactionEnabled bool) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = formatAddress(a, emailRedactionEnabled)
	}
	return out
}
