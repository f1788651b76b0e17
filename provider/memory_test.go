package provider

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentcloak/mailproxy/types"
)

func fixtureMessage(id, threadID, subject string) types.EmailMessage {
	return types.EmailMessage{
		ID:       id,
		ThreadID: threadID,
		Subject:  subject,
		From:     types.EmailAddress{Name: "Alice", Email: "alice@example.com"},
		To:       []types.EmailAddress{{Name: "Bob", Email: "bob@example.com"}},
		Date:     "2026-01-01T00:00:00Z",
		Snippet:  subject,
		Body:     "body of " + subject,
		Labels:   []string{"INBOX"},
	}
}

func TestMemProviderSearch(t *testing.T) {
	p := New(WithMessages(
		fixtureMessage("m1", "t1", "Project update"),
		fixtureMessage("m2", "t1", "Lunch plans"),
	))
	res, err := p.Search(context.Background(), SearchRequest{Query: "project", MaxResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Messages) != 1 || res.Messages[0].ID != "m1" {
		t.Fatalf("unexpected search result: %+v", res.Messages)
	}
}

func TestMemProviderGetMessageNotFound(t *testing.T) {
	p := New()
	if _, err := p.GetMessage(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemProviderThreadAggregation(t *testing.T) {
	p := New(WithMessages(
		fixtureMessage("m1", "t1", "Project update"),
		fixtureMessage("m2", "t1", "Re: Project update"),
	))
	got, err := p.GetThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.Thread.MessageCount != 2 {
		t.Errorf("want message count 2, got %d", got.Thread.MessageCount)
	}
	if len(got.Messages) != 2 {
		t.Errorf("want 2 messages, got %d", len(got.Messages))
	}

	wantParticipants := []types.EmailAddress{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	}
	if diff := cmp.Diff(wantParticipants, got.Thread.Participants); diff != "" {
		t.Errorf("thread participants mismatch (-want +got):\n%s", diff)
	}
}

func TestMemProviderCreateDraftEchoesContent(t *testing.T) {
	p := New()
	res, err := p.CreateDraft(context.Background(), CreateDraftRequest{
		To:      []types.EmailAddress{{Email: "bob@example.com"}},
		Subject: "Hello",
		Body:    "Hi there",
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if res.DraftID == "" || res.MessageID == "" {
		t.Fatalf("expected non-empty ids, got %+v", res)
	}

	drafts, err := p.ListDrafts(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if len(drafts.Drafts) != 1 || drafts.Drafts[0].DraftID != res.DraftID {
		t.Fatalf("draft not listed: %+v", drafts.Drafts)
	}
}

func TestMemProviderListLabels(t *testing.T) {
	p := New(WithLabels(types.LabelInfo{Name: "INBOX"}, types.LabelInfo{Name: "SENT"}))
	labels, err := p.ListLabels(context.Background())
	if err != nil {
		t.Fatalf("ListLabels: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("want 2 labels, got %d", len(labels))
	}
}

func TestMemProviderGetProviderInfoDefault(t *testing.T) {
	p := New()
	info, err := p.GetProviderInfo(context.Background())
	if err != nil {
		t.Fatalf("GetProviderInfo: %v", err)
	}
	if info.Type != "memory" {
		t.Errorf("want type memory, got %q", info.Type)
	}
}
