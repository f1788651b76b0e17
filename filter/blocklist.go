package filter

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/agentcloak/mailproxy/types"
)

// Blocklist blocks a message by sender domain, sender pattern, or
// subject pattern, in that order (spec.md §4.3). It is the first stage
// in the pipeline; like every stage, it runs only after the folder
// restriction check has passed.
type Blocklist struct{}

// NewBlocklist constructs the blocklist stage.
func NewBlocklist() *Blocklist { return &Blocklist{} }

func (*Blocklist) Name() string { return "blocklist" }

func (*Blocklist) Process(_ context.Context, msg types.EmailMessage, cfg types.FilterConfig) Verdict {
	senderDomain := domainOf(msg.From.Email)

	if domainMatches(senderDomain, effectiveDomains(cfg)) {
		return Verdict{Action: ActionBlock, Reason: "Blocked sender domain: " + senderDomain, Message: msg}
	}

	senderLower := strings.ToLower(msg.From.Email)
	for _, p := range effectiveSenderPatterns(cfg) {
		if p.MatchString(senderLower) {
			return Verdict{Action: ActionBlock, Reason: "Blocked sender pattern: " + p.String(), Message: msg}
		}
	}

	subjectLower := strings.ToLower(msg.Subject)
	for _, p := range effectiveSubjectPatterns(cfg) {
		if p.MatchString(subjectLower) {
			return Verdict{Action: ActionBlock, Reason: "Blocked subject pattern: " + p.String(), Message: msg}
		}
	}

	return Verdict{Action: ActionPass, Message: msg}
}

func domainOf(email string) string {
	email = strings.ToLower(email)
	idx := strings.LastIndex(email, "@")
	if idx < 0 {
		return email
	}
	return email[idx+1:]
}

func domainMatches(senderDomain string, domains []string) bool {
	if senderDomain == "" {
		return false
	}
	for _, d := range domains {
		if senderDomain == d || strings.HasSuffix(senderDomain, "."+d) {
			return true
		}
	}
	return false
}

func effectiveDomains(cfg types.FilterConfig) []string {
	out := make([]string, 0, len(defaultFinancialDomains)+len(cfg.BlockedDomains))
	if cfg.FinancialBlockingEnabled {
		out = append(out, defaultFinancialDomains...)
	}
	out = append(out, cfg.BlockedDomains...)
	return out
}

func effectiveSenderPatterns(cfg types.FilterConfig) []*regexp.Regexp {
	var raw []string
	if cfg.SensitiveSenderBlockingEnabled {
		raw = append(raw, defaultSensitiveSenderPatterns...)
	}
	raw = append(raw, cfg.BlockedSenderPatterns...)
	return compilePatterns(raw)
}

func effectiveSubjectPatterns(cfg types.FilterConfig) []*regexp.Regexp {
	var raw []string
	if cfg.SecurityBlockingEnabled {
		raw = append(raw, defaultSecuritySubjectPatterns...)
	}
	if cfg.FinancialBlockingEnabled {
		raw = append(raw, defaultFinancialSubjectPatterns...)
	}
	raw = append(raw, cfg.BlockedSubjectPatterns...)
	return compilePatterns(raw)
}

// compilePatterns compiles each pattern as case-insensitive; patterns
// that fail to compile are silently discarded (spec.md §4.3), never
// fatal. Results are cached per source-pattern-set so repeated calls
// for the same effective list (the common case: user lists rarely
// change within a process) don't recompile every message.
var patternCache sync.Map // map[string][]*regexp.Regexp

func compilePatterns(raw []string) []*regexp.Regexp {
	key := strings.Join(raw, "\x00")
	if cached, ok := patternCache.Load(key); ok {
		return cached.([]*regexp.Regexp)
	}
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	patternCache.Store(key, out)
	return out
}

// defaultFinancialDomains is a closed set of financial/payment/brokerage/
// gov-financial hosts blocked when FinancialBlockingEnabled is true.
var defaultFinancialDomains = []string{
	"chase.com", "bankofamerica.com", "wellsfargo.com", "citibank.com",
	"citi.com", "usbank.com", "pnc.com", "capitalone.com", "ally.com",
	"discover.com", "americanexpress.com", "amex.com", "synchronybank.com",
	"hsbc.com", "tdbank.com", "regions.com", "suntrust.com", "truist.com",
	"fifththird.com", "key.com", "santander.com", "barclaycardus.com",
	"paypal.com", "venmo.com", "stripe.com", "square.com", "cashapp.com",
	"zellepay.com", "wise.com", "westernunion.com", "moneygram.com",
	"fidelity.com", "schwab.com", "vanguard.com", "etrade.com",
	"tdameritrade.com", "robinhood.com", "merrilledge.com",
	"morganstanley.com", "irs.gov", "ssa.gov", "treasurydirect.gov",
	"equifax.com", "experian.com", "transunion.com", "creditkarma.com",
	"intuit.com", "turbotax.com",
}

// defaultSensitiveSenderPatterns matches sender addresses impersonating
// security/administrative roles commonly used in phishing.
var defaultSensitiveSenderPatterns = []string{
	`^security@`,
	`^admin@`,
	`^administrator@`,
	`^support@.*-(verify|secure|alert)`,
	`^no-?reply@.*-(security|billing|account)`,
	`^helpdesk@`,
	`^it-?support@`,
	`^accounts?@.*-(verify|confirm)`,
}

// defaultSecuritySubjectPatterns matches subjects typical of
// credential-harvesting and account-takeover attempts.
var defaultSecuritySubjectPatterns = []string{
	`password\s+reset`,
	`verify\s+your\s+(account|identity)`,
	`suspicious\s+(login|activity|sign-?in)`,
	`account\s+(suspended|locked|compromised)`,
	`security\s+alert`,
	`unusual\s+sign-?in\s+activity`,
	`confirm\s+your\s+(identity|account)`,
	`two-?factor\s+authentication`,
	`unauthorized\s+access`,
}

// defaultFinancialSubjectPatterns matches subjects typical of financial
// phishing and invoice/wire-fraud attempts.
var defaultFinancialSubjectPatterns = []string{
	`invoice\s+(overdue|attached|due)`,
	`payment\s+(failed|declined|required|overdue)`,
	`wire\s+transfer`,
	`urgent.*payment`,
	`your\s+(account|card)\s+has\s+been\s+charged`,
	`refund\s+(pending|available|processed)`,
	`tax\s+(refund|payment)\s+(pending|due)`,
	`update\s+your\s+(billing|payment)\s+(information|details)`,
}
