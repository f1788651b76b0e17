package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

func init() {
	register("get_provider_info", "Describe the mailbox backend's capabilities and limits", newGetProviderInfo)
}

func newGetProviderInfo(_ *filter.Pipeline, prov provider.Provider) Tool {
	return newFuncTool("get_provider_info", "Describe the mailbox backend's capabilities and limits", map[string]any{"type": "object", "properties": map[string]any{}}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		info, err := prov.GetProviderInfo(ctx)
		if err != nil {
			return types.NewToolError("provider_error", err.Error()), nil
		}
		return info, nil
	})
}
