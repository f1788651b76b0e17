package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("list_threads", "List conversation threads matching a query", newListThreads)
}

type listThreadsArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	PageToken  string `json:"page_token"`
}

type threadSummary struct {
	ID              string   `json:"id"`
	Subject         string   `json:"subject"`
	Participants    []string `json:"participants"`
	MessageCount    int      `json:"messageCount"`
	Snippet         string   `json:"snippet"`
	LastMessageDate string   `json:"lastMessageDate"`
	Labels          []string `json:"labels"`
	IsUnread        bool     `json:"isUnread"`
}

type listThreadsResult struct {
	Threads       []threadSummary `json:"threads"`
	TotalResults  int             `json:"totalResults"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	FilteredCount int             `json:"filteredCount,omitempty"`
}

func newListThreads(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("list_threads", "List conversation threads matching a query", listThreadsSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args listThreadsArgs
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return types.NewToolError("invalid_request", "malformed arguments"), nil
			}
		}
		maxResults := clamp(args.MaxResults, minMaxResults, maxMaxResults, defaultMaxResults)

		res, err := prov.ListThreads(ctx, provider.ListThreadsRequest{
			Query:      args.Query,
			MaxResults: maxResults,
			PageToken:  args.PageToken,
		})
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}

		emailRedaction := p.EmailRedactionEnabled()
		summaries := make([]threadSummary, 0, len(res.Threads))
		blockedCount := 0
		for _, th := range res.Threads {
			if isThreadBlocked(th, p) {
				blockedCount++
				continue
			}
			summaries = append(summaries, threadSummary{
				ID:              th.ID,
				Subject:         th.Subject,
				Participants:    formatAddresses(th.Participants, emailRedaction),
				MessageCount:    th.MessageCount,
				Snippet:         th.Snippet,
				LastMessageDate: th.LastMessageDate,
				Labels:          th.Labels,
				IsUnread:        th.IsUnread,
			})
		}

		out := listThreadsResult{
			Threads:       summaries,
			TotalResults:  res.ResultSizeEstimate,
			NextPageToken: res.NextPageToken,
		}
		if p.ShowFilteredCount() && blockedCount > 0 {
			out.FilteredCount = blockedCount
		}
		return out, nil
	})
}

// isThreadBlocked reports whether every participant in th belongs to a
// blocked domain (spec.md §4.6). It consults the pipeline's effective
// blocked-domain list directly rather than re-running the Blocklist
// stage, since a thread has no single "from" field to stage against.
func isThreadBlocked(th types.EmailThread, p *filter.Pipeline) bool {
	if len(th.Participants) == 0 {
		return false
	}
	for _, participant := range th.Participants {
		domain := domainPart(participant.Email)
		if !p.DomainBlocked(domain) {
			return false
		}
	}
	return true
}

func domainPart(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return email
}

func listThreadsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string"},
			"max_results": map[string]any{"type": "integer", "minimum": minMaxResults, "maximum": maxMaxResults, "default": defaultMaxResults},
			"page_token":  map[string]any{"type": "string"},
		},
	}
}
