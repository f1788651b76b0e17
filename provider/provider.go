// Package provider defines the mailbox backend contract the tool
// presenters dispatch through. The only implementation in this package
// is the in-memory fixture MemProvider; no IMAP or vendor REST API
// backend exists here, and the core never imports a concrete backend
// directly.
package provider

import (
	"context"
	"fmt"

	"github.com/agentcloak/mailproxy/types"
)

// SearchRequest is the input to Search.
type SearchRequest struct {
	Query      string
	MaxResults int
	PageToken  string
}

// SearchResult is the output of Search.
type SearchResult struct {
	Messages           []types.EmailMessage
	NextPageToken      string
	ResultSizeEstimate int
}

// ListThreadsRequest is the input to ListThreads.
type ListThreadsRequest struct {
	Query      string
	MaxResults int
	PageToken  string
}

// ListThreadsResult is the output of ListThreads.
type ListThreadsResult struct {
	Threads            []types.EmailThread
	NextPageToken      string
	ResultSizeEstimate int
}

// ThreadWithMessages is the output of GetThread.
type ThreadWithMessages struct {
	Thread   types.EmailThread
	Messages []types.EmailMessage
}

// CreateDraftRequest is the input to CreateDraft.
type CreateDraftRequest struct {
	To                []types.EmailAddress
	Subject           string
	Body              string
	InReplyToThreadID string
}

// CreateDraftResult is the output of CreateDraft.
type CreateDraftResult struct {
	DraftID   string
	MessageID string
}

// ListDraftsResult is the output of ListDrafts.
type ListDraftsResult struct {
	Drafts []types.DraftInfo
}

// Provider is the abstract mailbox backend (spec.md §6). Every method
// may suspend on network I/O and must honor ctx cancellation.
// CreateDraft changes backend state: a created draft is returned by
// later ListDrafts calls.
type Provider interface {
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	GetMessage(ctx context.Context, id string) (types.EmailMessage, error)
	ListThreads(ctx context.Context, req ListThreadsRequest) (ListThreadsResult, error)
	GetThread(ctx context.Context, id string) (ThreadWithMessages, error)
	CreateDraft(ctx context.Context, req CreateDraftRequest) (CreateDraftResult, error)
	ListDrafts(ctx context.Context, maxResults int) (ListDraftsResult, error)
	ListLabels(ctx context.Context) ([]types.LabelInfo, error)
	GetProviderInfo(ctx context.Context) (types.ProviderInfo, error)
}

// ErrNotFound is returned by GetMessage/GetThread when the id is unknown.
var ErrNotFound = fmt.Errorf("not found")
