package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/agentcloak/mailproxy/types"
)

// PII performs global textual substitution of sensitive patterns in
// Subject, Body, and Snippet (spec.md §4.4). It returns Redact iff any
// of those three fields differs from its input.
//
// Every pattern below is a compiled package-level *regexp.Regexp;
// regexp.Regexp carries no mutable iterator state between calls to
// ReplaceAllString, so the same compiled value is safe to reuse
// concurrently across messages without a per-call reset (spec.md §9's
// "reset global-regex iterator state" note is automatic in Go).
type PII struct{}

// NewPII constructs the PII redactor stage.
func NewPII() *PII { return &PII{} }

func (*PII) Name() string { return "pii" }

// piiRule is a redaction step. Most rules are a plain regexp
// replacement; the AWS-secret rule needs a lookahead ("...followed
// later by aws|secret|key") that Go's RE2 engine cannot express
// directly, so it supplies replace instead of a bare pattern/replacement
// pair and does the lookahead in Go.
type piiRule struct {
	pattern     *regexp.Regexp
	replacement string
	replace     func(s string) string
}

func (r piiRule) apply(s string) string {
	if r.replace != nil {
		return r.replace(s)
	}
	return r.pattern.ReplaceAllString(s, r.replacement)
}

var awsSecretCandidate = regexp.MustCompile(`\b[A-Za-z0-9/+=]{40}\b`)
var awsSecretContext = regexp.MustCompile(`(?i)aws|secret|key`)

// redactAWSSecrets replaces any 40-character base64-alphabet run with
// [AWS_SECRET_REDACTED], but only when the word "aws", "secret", or
// "key" appears anywhere later in the text — the same lookahead-for-
// context trade-off spec.md §9(b) calls out as intentionally favoring
// recall over precision.
func redactAWSSecrets(s string) string {
	matches := awsSecretCandidate.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !awsSecretContext.MatchString(s[end:]) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString("[AWS_SECRET_REDACTED]")
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// Order matters: Bearer must precede the standalone AWS-secret pattern
// (otherwise the secret pattern would also match inside a bearer
// token), and account-ending-in must precede the labeled-account
// pattern.
var piiRules = []piiRule{
	{pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), replacement: "[SSN_REDACTED]"},
	{pattern: regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6(?:011|5\d{2}))[- ]?\d{4}[- ]?\d{4}[- ]?\d{3,4}\b`), replacement: "[CREDIT_CARD_REDACTED]"},
	{pattern: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-----[\s\S]*?-----END (?:RSA |EC |DSA )?PRIVATE KEY-----`), replacement: "[PRIVATE_KEY_REDACTED]"},
	{pattern: regexp.MustCompile(`\bsk_(?:live|test)_[A-Za-z0-9]{20,}\b`), replacement: "[API_KEY_REDACTED]"},
	{pattern: regexp.MustCompile(`\bpk_(?:live|test)_[A-Za-z0-9]{20,}\b`), replacement: "[API_KEY_REDACTED]"},
	{pattern: regexp.MustCompile(`(?i)\b(?:api_key|apikey|api_secret|token)[=:]\s*["']?[A-Za-z0-9_\-]{20,}["']?`), replacement: "[API_KEY_REDACTED]"},
	{pattern: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), replacement: "[AWS_KEY_REDACTED]"},
	{pattern: regexp.MustCompile(`Bearer\s+[A-Za-z0-9_\-.]{20,}`), replacement: "Bearer [TOKEN_REDACTED]"},
	{replace: redactAWSSecrets},
	{pattern: regexp.MustCompile(`(?i)(?:account|acct|card)(?:\s+(?:number|no|#))?\s*(?:ending|ending in|xxxx|\.{3,})\s*\d{4}`), replacement: "[ACCOUNT_REDACTED]"},
	{pattern: regexp.MustCompile(`(?i)(?:account|acct)(?:\s+(?:number|no|#))?[.:\s]+\d{6,}`), replacement: "[ACCOUNT_REDACTED]"},
	{pattern: regexp.MustCompile(`(?i)(?:routing|aba|transit)\s*(?:number|no|#)?\s*:?\s*\d{9}\b`), replacement: "[ROUTING_NUMBER_REDACTED]"},
}

var dollarAmountRule = piiRule{pattern: regexp.MustCompile(`\$\d{1,3}(?:,\d{3})+\.\d{2}`), replacement: "[AMOUNT_REDACTED]"}
var emailAddressRule = piiRule{pattern: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), replacement: "[EMAIL_REDACTED]"}

func (*PII) Process(_ context.Context, msg types.EmailMessage, cfg types.FilterConfig) Verdict {
	out := msg.Clone()
	if !cfg.PIIRedactionEnabled {
		return Verdict{Action: ActionPass, Message: out}
	}

	rules := piiRules
	if cfg.DollarAmountRedactionEnabled {
		rules = append(append([]piiRule(nil), rules...), dollarAmountRule)
	}
	if cfg.EmailRedactionEnabled {
		rules = append(append([]piiRule(nil), rules...), emailAddressRule)
	}

	var subjectChanged, bodyChanged, snippetChanged bool
	out.Subject, subjectChanged = redactField(out.Subject, rules)
	out.Body, bodyChanged = redactField(out.Body, rules)
	out.Snippet, snippetChanged = redactField(out.Snippet, rules)
	changed := subjectChanged || bodyChanged || snippetChanged

	if !changed {
		return Verdict{Action: ActionPass, Message: out}
	}
	return Verdict{Action: ActionRedact, Message: out}
}

func redactField(s string, rules []piiRule) (string, bool) {
	original := s
	for _, r := range rules {
		s = r.apply(s)
	}
	return s, s != original
}
