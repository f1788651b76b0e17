package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
	descs    = map[string]string{}
)

// register adds a presenter factory under name. Called from each
// presenter's init(), so registration order follows file order.
func register(name, description string, factory Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("tool %q already registered", name))
	}
	registry[name] = factory
	descs[name] = description
}

// ToolInfo is a catalog entry for one registered presenter.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Catalog returns every registered presenter, sorted by name.
func Catalog() []ToolInfo {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]ToolInfo, 0, len(registry))
	for name := range registry {
		out = append(out, ToolInfo{Name: name, Description: descs[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BuildSelection instantiates the named presenters, bound to p and
// prov, preserving the order names were given and dropping duplicates.
func BuildSelection(names []string, p *filter.Pipeline, prov provider.Provider) ([]Tool, error) {
	regMu.RLock()
	defer regMu.RUnlock()

	seen := map[string]bool{}
	out := make([]Tool, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		factory, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		out = append(out, factory(p, prov))
	}
	return out, nil
}

// ExecuteTool instantiates the named presenter bound to p and prov and
// runs it with input, recovering any panic into a generic invalid_request
// error so a single tool's bug cannot take down the request envelope.
func ExecuteTool(ctx context.Context, name string, p *filter.Pipeline, prov provider.Provider, input json.RawMessage) (result any, err error) {
	regMu.RLock()
	factory, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, types.NewToolError("unknown_tool", fmt.Sprintf("unknown tool %q", name))
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = types.NewToolError("invalid_request", fmt.Sprintf("tool %q panicked: %v", name, r))
		}
	}()

	t := factory(p, prov)
	return t.Execute(ctx, input)
}
