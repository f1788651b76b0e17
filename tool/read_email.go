package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("read_email", "Fetch a single message by id, filtered by the active policy", newReadEmail)
}

type readEmailArgs struct {
	MessageID string `json:"message_id"`
}

type emailDetail struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"threadId"`
	Subject        string   `json:"subject"`
	From           string   `json:"from"`
	To             []string `json:"to"`
	Cc             []string `json:"cc,omitempty"`
	Date           string   `json:"date"`
	Body           string   `json:"body"`
	Labels         []string `json:"labels"`
	HasAttachments bool     `json:"hasAttachments"`
	IsUnread       bool     `json:"isUnread"`
}

func newReadEmail(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("read_email", "Fetch a single message by id, filtered by the active policy", readEmailSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args readEmailArgs
		if err := json.Unmarshal(raw, &args); err != nil || args.MessageID == "" {
			return types.NewToolError("invalid_request", "message_id is required"), nil
		}

		msg, err := prov.GetMessage(ctx, args.MessageID)
		if err != nil {
			return types.NewToolError("not_found", err.Error()), nil
		}

		v := p.Process(ctx, msg)
		if v.Action == filter.ActionBlock {
			e := types.NewToolError("blocked", v.Reason)
			e.Reason = v.Reason
			e.MessageID = args.MessageID
			return e, nil
		}

		emailRedaction := p.EmailRedactionEnabled()
		out := v.Message
		return emailDetail{
			ID:             out.ID,
			ThreadID:       out.ThreadID,
			Subject:        out.Subject,
			From:           formatAddress(out.From, emailRedaction),
			To:             formatAddresses(out.To, emailRedaction),
			Cc:             formatAddresses(out.Cc, emailRedaction),
			Date:           out.Date,
			Body:           out.Body,
			Labels:         out.Labels,
			HasAttachments: len(out.Attachments) > 0,
			IsUnread:       out.IsUnread,
		}, nil
	})
}

func readEmailSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message_id": map[string]any{"type": "string"},
		},
		"required": []string{"message_id"},
	}
}
