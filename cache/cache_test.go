package cache

import (
	"encoding/json"
	"testing"

	"github.com/agentcloak/mailproxy/types"
)

func TestCachedValueRoundTripWithConfig(t *testing.T) {
	cfg := types.DefaultFilterConfig()
	cfg.FinancialBlockingEnabled = false
	raw, err := json.Marshal(cachedValue{Set: true, Config: &cfg})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got cachedValue
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Config == nil || got.Config.FinancialBlockingEnabled {
		t.Fatalf("round trip lost config: %+v", got)
	}
}

func TestCachedValueRoundTripNilConfig(t *testing.T) {
	raw, err := json.Marshal(cachedValue{Set: true, Config: nil})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got cachedValue
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Set || got.Config != nil {
		t.Fatalf("expected Set=true, Config=nil, got %+v", got)
	}
}

func TestKeyNamespacing(t *testing.T) {
	c := &FilterConfigCache{prefix: "mailproxy"}
	if got, want := c.key("conn-1"), "mailproxy:filterconfig:conn-1"; got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}
