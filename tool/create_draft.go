package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("create_draft", "Create a draft message, optionally replying within a thread", newCreateDraft)
}

type createDraftArgs struct {
	To                []types.EmailAddress `json:"to"`
	Subject           string               `json:"subject"`
	Body              string               `json:"body"`
	InReplyToThreadID string               `json:"in_reply_to_thread_id"`
}

type createDraftResult struct {
	DraftID   string `json:"draftId"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// createDraft applies no pipeline stage to the outgoing content: spec.md
// §4.6 treats draft bodies as user-authored, not agent-surfaced mail.
func newCreateDraft(_ *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("create_draft", "Create a draft message, optionally replying within a thread", createDraftSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args createDraftArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return types.NewToolError("invalid_request", "malformed arguments"), nil
		}
		if args.Subject == "" {
			return types.NewToolError("invalid_request", "subject is required"), nil
		}

		recipients := args.To
		if len(recipients) == 0 && args.InReplyToThreadID != "" {
			got, err := prov.GetThread(ctx, args.InReplyToThreadID)
			if err == nil {
				recipients = got.Thread.Participants
			}
		}
		if len(recipients) == 0 {
			return types.NewToolError("invalid_request", "a recipient or in_reply_to_thread_id with thread participants is required"), nil
		}

		res, err := prov.CreateDraft(ctx, provider.CreateDraftRequest{
			To:                recipients,
			Subject:           args.Subject,
			Body:              args.Body,
			InReplyToThreadID: args.InReplyToThreadID,
		})
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}

		return createDraftResult{DraftID: res.DraftID, MessageID: res.MessageID, Status: "created"}, nil
	})
}

func createDraftSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"email": map[string]any{"type": "string"},
					},
				},
			},
			"subject":               map[string]any{"type": "string"},
			"body":                  map[string]any{"type": "string"},
			"in_reply_to_thread_id": map[string]any{"type": "string"},
		},
		"required": []string{"subject", "body"},
	}
}
