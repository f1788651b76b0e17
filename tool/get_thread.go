package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("get_thread", "Fetch a thread and its messages, filtered by the active policy", newGetThread)
}

type getThreadArgs struct {
	ThreadID string `json:"thread_id"`
}

type threadMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Date     string `json:"date"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	IsUnread bool   `json:"isUnread"`
}

type threadEnvelope struct {
	ID              string          `json:"id"`
	Subject         string          `json:"subject"`
	Participants    []string        `json:"participants"`
	LastMessageDate string          `json:"lastMessageDate"`
	Messages        []threadMessage `json:"messages"`
	FilteredCount   int             `json:"filteredCount,omitempty"`
}

func newGetThread(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("get_thread", "Fetch a thread and its messages, filtered by the active policy", getThreadSchema(), func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args getThreadArgs
		if err := json.Unmarshal(raw, &args); err != nil || args.ThreadID == "" {
			return types.NewToolError("invalid_request", "thread_id is required"), nil
		}

		got, err := prov.GetThread(ctx, args.ThreadID)
		if err != nil {
			return types.NewToolError("not_found", err.Error()), nil
		}

		emailRedaction := p.EmailRedactionEnabled()
		batch := p.ProcessBatch(ctx, got.Messages)

		messages := make([]threadMessage, 0, len(batch.Passed))
		for _, m := range batch.Passed {
			messages = append(messages, threadMessage{
				ID:       m.ID,
				From:     formatAddress(m.From, emailRedaction),
				Date:     m.Date,
				Subject:  m.Subject,
				Body:     m.Body,
				IsUnread: m.IsUnread,
			})
		}

		out := threadEnvelope{
			ID:              got.Thread.ID,
			Subject:         got.Thread.Subject,
			Participants:    formatAddresses(got.Thread.Participants, emailRedaction),
			LastMessageDate: got.Thread.LastMessageDate,
			Messages:        messages,
		}
		if p.ShowFilteredCount() && len(batch.Blocked) > 0 {
			out.FilteredCount = len(batch.Blocked)
		}
		return out, nil
	})
}

func getThreadSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thread_id": map[string]any{"type": "string"},
		},
		"required": []string{"thread_id"},
	}
}
