package provider

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/agentcloak/mailproxy/types"
)

const defaultMaxResults = 20

// MemProvider is an in-memory Provider backed by a fixed set of
// messages, threads, and labels. It exists for tests and local
// development in place of a real IMAP or vendor-API transport, which
// is out of scope for this repository.
type MemProvider struct {
	mu       sync.RWMutex
	messages map[string]types.EmailMessage
	threads  map[string]types.EmailThread
	drafts   []types.DraftInfo
	labels   []types.LabelInfo
	info     types.ProviderInfo
	nextID   int
}

// Option configures a MemProvider at construction time.
type Option func(*MemProvider)

// WithMessages seeds the provider with messages, keyed and grouped into
// threads by ThreadID.
func WithMessages(msgs ...types.EmailMessage) Option {
	return func(p *MemProvider) {
		for _, m := range msgs {
			p.messages[m.ID] = m
			p.indexThread(m)
		}
	}
}

// WithLabels seeds the provider's label catalog.
func WithLabels(labels ...types.LabelInfo) Option {
	return func(p *MemProvider) { p.labels = append(p.labels, labels...) }
}

// WithProviderInfo overrides the metadata GetProviderInfo returns.
func WithProviderInfo(info types.ProviderInfo) Option {
	return func(p *MemProvider) { p.info = info }
}

// New constructs a MemProvider with sensible local-fixture defaults.
func New(opts ...Option) *MemProvider {
	p := &MemProvider{
		messages: make(map[string]types.EmailMessage),
		threads:  make(map[string]types.EmailThread),
		info: types.ProviderInfo{
			Type:               "memory",
			SearchCapabilities: []string{"query"},
			SupportsThreading:  true,
			SupportedFolders:   []string{"INBOX", "SENT", "DRAFT"},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MemProvider) indexThread(m types.EmailMessage) {
	t, ok := p.threads[m.ThreadID]
	if !ok {
		t = types.EmailThread{ID: m.ThreadID, Subject: m.Subject}
	}
	t.MessageCount++
	t.Snippet = m.Snippet
	t.LastMessageDate = m.Date
	t.Labels = mergeLabels(t.Labels, m.Labels)
	t.Participants = mergeParticipants(t.Participants, m.From)
	for _, to := range m.To {
		t.Participants = mergeParticipants(t.Participants, to)
	}
	if m.IsUnread {
		t.IsUnread = true
	}
	p.threads[m.ThreadID] = t
}

func mergeLabels(existing, add []string) []string {
	seen := map[string]bool{}
	for _, l := range existing {
		seen[l] = true
	}
	out := append([]string(nil), existing...)
	for _, l := range add {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func mergeParticipants(existing []types.EmailAddress, add types.EmailAddress) []types.EmailAddress {
	for _, e := range existing {
		if strings.EqualFold(e.Email, add.Email) {
			return existing
		}
	}
	return append(existing, add)
}

func (p *MemProvider) Search(_ context.Context, req SearchRequest) (SearchResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	max := req.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	var matched []types.EmailMessage
	q := strings.ToLower(strings.TrimSpace(req.Query))
	for _, m := range p.messages {
		if q == "" || matchesQuery(m, q) {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date > matched[j].Date })

	if len(matched) > max {
		matched = matched[:max]
	}
	return SearchResult{Messages: matched, ResultSizeEstimate: len(matched)}, nil
}

func matchesQuery(m types.EmailMessage, q string) bool {
	return strings.Contains(strings.ToLower(m.Subject), q) ||
		strings.Contains(strings.ToLower(m.Body), q) ||
		strings.Contains(strings.ToLower(m.From.Email), q)
}

func (p *MemProvider) GetMessage(_ context.Context, id string) (types.EmailMessage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.messages[id]
	if !ok {
		return types.EmailMessage{}, ErrNotFound
	}
	return m, nil
}

func (p *MemProvider) ListThreads(_ context.Context, req ListThreadsRequest) (ListThreadsResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	max := req.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	var matched []types.EmailThread
	q := strings.ToLower(strings.TrimSpace(req.Query))
	for _, t := range p.threads {
		if q == "" || strings.Contains(strings.ToLower(t.Subject), q) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].LastMessageDate > matched[j].LastMessageDate })

	if len(matched) > max {
		matched = matched[:max]
	}
	return ListThreadsResult{Threads: matched, ResultSizeEstimate: len(matched)}, nil
}

func (p *MemProvider) GetThread(_ context.Context, id string) (ThreadWithMessages, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.threads[id]
	if !ok {
		return ThreadWithMessages{}, ErrNotFound
	}
	var msgs []types.EmailMessage
	for _, m := range p.messages {
		if m.ThreadID == id {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Date < msgs[j].Date })
	return ThreadWithMessages{Thread: t, Messages: msgs}, nil
}

func (p *MemProvider) CreateDraft(_ context.Context, req CreateDraftRequest) (CreateDraftResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	draftID := "draft-" + strconv.Itoa(p.nextID)
	messageID := "msg-" + draftID

	p.drafts = append(p.drafts, types.DraftInfo{
		DraftID:   draftID,
		MessageID: messageID,
		Subject:   req.Subject,
		To:        req.To,
		Body:      req.Body,
	})
	return CreateDraftResult{DraftID: draftID, MessageID: messageID}, nil
}

func (p *MemProvider) ListDrafts(_ context.Context, maxResults int) (ListDraftsResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	max := maxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	drafts := p.drafts
	if len(drafts) > max {
		drafts = drafts[:max]
	}
	return ListDraftsResult{Drafts: append([]types.DraftInfo(nil), drafts...)}, nil
}

func (p *MemProvider) ListLabels(_ context.Context) ([]types.LabelInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.LabelInfo(nil), p.labels...), nil
}

func (p *MemProvider) GetProviderInfo(_ context.Context) (types.ProviderInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info, nil
}
