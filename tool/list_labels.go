package tool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("list_labels", "List mailbox labels/folders", newListLabels)
}

type listLabelsResult struct {
	Labels []types.LabelInfo `json:"labels"`
}

func newListLabels(p *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("list_labels", "List mailbox labels/folders", map[string]any{"type": "object", "properties": map[string]any{}}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		labels, err := prov.ListLabels(ctx)
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}

		allowed := p.AllowedFolders()
		if len(allowed) == 0 {
			return listLabelsResult{Labels: labels}, nil
		}

		out := make([]types.LabelInfo, 0, len(labels))
		for _, l := range labels {
			if folderAllowed(l.Name, allowed) {
				out = append(out, l)
			}
		}
		return listLabelsResult{Labels: out}, nil
	})
}

func folderAllowed(name string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(name, a) {
			return true
		}
	}
	return false
}
