package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

const (
	defaultMaxResults = 20
	minMaxResults     = 1
	maxMaxResults     = 200
)

func init() {
	register("search_emails", "Search the mailbox for messages matching a query", newSearchEmails)
}

type searchEmailsArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	PageToken  string `json:"page_token"`
}

type emailSummary struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"threadId"`
	Subject        string   `json:"subject"`
	From           string   `json:"from"`
	Date           string   `json:"date"`
	Snippet        string   `json:"snippet"`
	IsUnread       bool     `json:"isUnread"`
	Labels         []string `json:"labels"`
	HasAttachments bool     `json:"hasAttachments"`
}

type searchEmailsResult struct {
	Results       []emailSummary `json:"results"`
	TotalResults  int            `json:"totalResults"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
	FilteredCount int            `json:"filteredCount,omitempty"`
}

func newSearchEmails(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("search_emails", "Search the mailbox for messages matching a query", searchEmailsSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args searchEmailsArgs
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return types.NewToolError("invalid_request", "malformed arguments"), nil
			}
		}
		maxResults := clamp(args.MaxResults, minMaxResults, maxMaxResults, defaultMaxResults)

		res, err := prov.Search(ctx, provider.SearchRequest{
			Query:      args.Query,
			MaxResults: maxResults,
			PageToken:  args.PageToken,
		})
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}

		batch := p.ProcessBatch(ctx, res.Messages)
		summaries := make([]emailSummary, 0, len(batch.Passed))
		emailRedaction := p.EmailRedactionEnabled()
		for _, m := range batch.Passed {
			summaries = append(summaries, emailSummary{
				ID:             m.ID,
				ThreadID:       m.ThreadID,
				Subject:        m.Subject,
				From:           formatAddress(m.From, emailRedaction),
				Date:           m.Date,
				Snippet:        m.Snippet,
				IsUnread:       m.IsUnread,
				Labels:         m.Labels,
				HasAttachments: len(m.Attachments) > 0,
			})
		}

		out := searchEmailsResult{
			Results:       summaries,
			TotalResults:  res.ResultSizeEstimate,
			NextPageToken: res.NextPageToken,
		}
		if p.ShowFilteredCount() && len(batch.Blocked) > 0 {
			out.FilteredCount = len(batch.Blocked)
		}
		return out, nil
	})
}

func searchEmailsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string"},
			"max_results": map[string]any{"type": "integer", "minimum": minMaxResults, "maximum": maxMaxResults, "default": defaultMaxResults},
			"page_token":  map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func clamp(v, min, max, def int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
