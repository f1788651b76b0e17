package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("list_drafts", "List saved drafts", newListDrafts)
}

type listDraftsArgs struct {
	MaxResults int `json:"max_results"`
}

type draftSummary struct {
	DraftID   string   `json:"draftId"`
	MessageID string   `json:"messageId"`
	Subject   string   `json:"subject"`
	To        []string `json:"to"`
}

type listDraftsResult struct {
	Drafts []draftSummary `json:"drafts"`
}

func newListDrafts(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("list_drafts", "List saved drafts", listDraftsSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args listDraftsArgs
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return types.NewToolError("invalid_request", "malformed arguments"), nil
			}
		}
		maxResults := clamp(args.MaxResults, minMaxResults, maxMaxResults, defaultMaxResults)

		res, err := prov.ListDrafts(ctx, maxResults)
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}

		emailRedaction := p.EmailRedactionEnabled()
		out := make([]draftSummary, 0, len(res.Drafts))
		for _, d := range res.Drafts {
			out = append(out, draftSummary{
				DraftID:   d.DraftID,
				MessageID: d.MessageID,
				Subject:   d.Subject,
				To:        formatAddresses(d.To, emailRedaction),
			})
		}
		return listDraftsResult{Drafts: out}, nil
	})
}

func listDraftsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max_results": map[string]any{"type": "integer", "minimum": minMaxResults, "maximum": maxMaxResults, "default": defaultMaxResults},
		},
	}
}
