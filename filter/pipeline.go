// Package filter implements the content-filter pipeline that stands
// between an untrusted automated agent and a user's mailbox. Every
// message leaving the proxy is passed through a staged, configurable
// transformation that maps it to a verdict of pass, redact, or block.
//
// The pipeline composes a fixed stage order — Blocklist, Sanitizer,
// PII, Injection — and is pure with respect to its inputs and config:
// no I/O, no global state, safe for concurrent reuse across requests.
package filter

import (
	"context"
	"strings"

	"github.com/agentcloak/mailproxy/types"
)

// Action is the tri-valued result of a stage or the pipeline as a whole.
type Action string

const (
	// ActionPass means the stage made no semantic change (a sanitizer
	// pass that only stripped invisible characters still reports Pass).
	ActionPass Action = "pass"
	// ActionRedact means the message passes downstream with altered text.
	ActionRedact Action = "redact"
	// ActionBlock means the message is withheld and reported as filtered.
	// Block is terminal: once returned, no further stage runs.
	ActionBlock Action = "block"
)

// Verdict is the result of running a message through a stage or the
// whole pipeline.
type Verdict struct {
	Action  Action             `json:"action"`
	Reason  string             `json:"reason,omitempty"`
	Message types.EmailMessage `json:"message"`
}

// Stage is one step of the filter pipeline: given a message and the
// resolved per-credential config, return a verdict. Stages never
// propagate errors — anything a stage cannot parse is a no-op for that
// stage, per spec.md §7.
type Stage interface {
	Name() string
	Process(ctx context.Context, msg types.EmailMessage, cfg types.FilterConfig) Verdict
}

// Pipeline composes stages in a fixed order with short-circuit on
// block, applies folder restriction before stages and attachment
// stripping after, and exposes single-message and batch operations.
type Pipeline struct {
	cfg    types.FilterConfig
	stages []Stage
}

// NewPipeline builds a pipeline for one request's resolved config. cfg
// may be nil, in which case every flag defaults to true and every list
// is empty (spec.md §9 "configuration absence vs defaults").
func NewPipeline(cfg *types.FilterConfig) *Pipeline {
	resolved := types.Defaulted(cfg)
	return &Pipeline{
		cfg: resolved,
		stages: []Stage{
			NewBlocklist(),
			NewSanitizer(),
			NewPII(),
			NewInjection(),
		},
	}
}

// AddStage appends a custom stage after the fixed built-in sequence.
// This is the append-only extension point spec.md §9 calls "addFilter".
func (p *Pipeline) AddStage(s Stage) *Pipeline {
	if s != nil {
		p.stages = append(p.stages, s)
	}
	return p
}

// Config returns the pipeline's resolved configuration.
func (p *Pipeline) Config() types.FilterConfig { return p.cfg }

// ShowFilteredCount reports whether presenters should surface a
// filteredCount field.
func (p *Pipeline) ShowFilteredCount() bool { return p.cfg.ShowFilteredCount }

// EmailRedactionEnabled reports whether raw addresses must be hidden.
func (p *Pipeline) EmailRedactionEnabled() bool { return p.cfg.EmailRedactionEnabled }

// AttachmentFilteringEnabled reports whether attachment metadata is
// stripped on pass.
func (p *Pipeline) AttachmentFilteringEnabled() bool { return p.cfg.AttachmentFilteringEnabled }

// AllowedFolders returns the configured folder allowlist.
func (p *Pipeline) AllowedFolders() []string { return p.cfg.AllowedFolders }

// BlockedDomains returns the effective blocked-domain list (defaults,
// subject to FinancialBlockingEnabled, merged with user-supplied
// domains) — used directly by list_threads for participant checks
// without re-entering the Blocklist stage (spec.md §9).
func (p *Pipeline) BlockedDomains() []string {
	return effectiveDomains(p.cfg)
}

// DomainBlocked reports whether senderDomain matches the effective
// blocked-domain list by the same exact-or-subdomain rule the
// Blocklist stage uses.
func (p *Pipeline) DomainBlocked(senderDomain string) bool {
	return domainMatches(strings.ToLower(senderDomain), p.BlockedDomains())
}

// Process runs one message through folder restriction, the stage
// sequence, and attachment stripping. If ctx is cancelled before every
// stage has run, the message is blocked rather than passed unfiltered.
func (p *Pipeline) Process(ctx context.Context, msg types.EmailMessage) Verdict {
	if blocked, reason := folderBlocked(msg, p.cfg.AllowedFolders); blocked {
		return Verdict{Action: ActionBlock, Reason: reason, Message: msg}
	}

	m := msg
	overallAction := ActionPass
	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return Verdict{Action: ActionBlock, Reason: "request cancelled before filtering completed", Message: msg}
		default:
		}
		v := stage.Process(ctx, m, p.cfg)
		if v.Action == ActionBlock {
			return v
		}
		m = v.Message
		if v.Action == ActionRedact {
			overallAction = ActionRedact
		}
	}

	if p.cfg.AttachmentFilteringEnabled {
		m.Attachments = []types.Attachment{}
	}

	return Verdict{Action: overallAction, Message: m}
}

// BatchResult is the partitioned outcome of processing a batch of
// messages: passed preserves input order among non-blocked messages
// (using the post-stage, possibly redacted message); blocked preserves
// input order and stores the original input message together with the
// reason it was withheld.
type BatchResult struct {
	Passed  []types.EmailMessage
	Blocked []BlockedMessage
}

// BlockedMessage pairs an original (pre-pipeline) message with the
// reason it was blocked.
type BlockedMessage struct {
	Message types.EmailMessage
	Reason  string
}

// ProcessBatch processes each message independently and partitions the
// results. If ctx is cancelled mid-batch, it returns early with
// whatever messages have already been classified (spec.md §5).
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []types.EmailMessage) BatchResult {
	out := BatchResult{
		Passed:  make([]types.EmailMessage, 0, len(msgs)),
		Blocked: make([]BlockedMessage, 0),
	}
	for _, original := range msgs {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		v := p.Process(ctx, original)
		if v.Action == ActionBlock {
			out.Blocked = append(out.Blocked, BlockedMessage{Message: original, Reason: v.Reason})
			continue
		}
		out.Passed = append(out.Passed, v.Message)
	}
	return out
}

func folderBlocked(msg types.EmailMessage, allowed []string) (bool, string) {
	if len(allowed) == 0 {
		return false, ""
	}
	for _, label := range msg.Labels {
		for _, folder := range allowed {
			if strings.EqualFold(label, folder) {
				return false, ""
			}
		}
	}
	return true, "folder not in allowed list"
}
