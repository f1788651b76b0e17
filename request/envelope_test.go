package request

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agentcloak/mailproxy/credential"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/ratelimit"
	"github.com/agentcloak/mailproxy/types"
)

var errFakeNotFound = errors.New("fake store: not found")

type fakeStore struct {
	mu          sync.Mutex
	credentials map[string]credential.Credential
	connections map[string]credential.Connection
	configs     map[string]*types.FilterConfig
	touched     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		credentials: map[string]credential.Credential{},
		connections: map[string]credential.Connection{},
		configs:     map[string]*types.FilterConfig{},
	}
}

func (s *fakeStore) ResolveCredential(_ context.Context, bearerHash string) (credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[bearerHash]
	if !ok {
		return credential.Credential{}, errFakeNotFound
	}
	return c, nil
}

func (s *fakeStore) GetConnection(_ context.Context, connectionID string) (credential.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[connectionID]
	if !ok {
		return credential.Connection{}, errFakeNotFound
	}
	return c, nil
}

func (s *fakeStore) GetFilterConfig(_ context.Context, connectionID string) (*types.FilterConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs[connectionID], nil
}

func (s *fakeStore) TouchCredentialLastUsed(_ context.Context, credentialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, credentialID)
	return nil
}

func (s *fakeStore) CreateCredential(_ context.Context, connectionID string) (string, string, error) {
	return "", "", nil
}

func (s *fakeStore) Close() error { return nil }

func seedBearer(s *fakeStore, bearer string, cred credential.Credential, conn credential.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.HashBearer(bearer)] = cred
	s.connections[conn.ID] = conn
}

func newFixtureProvider() provider.Provider {
	return provider.New(provider.WithMessages(
		types.EmailMessage{ID: "m1", ThreadID: "t1", Subject: "hello", From: types.EmailAddress{Email: "a@example.com"}, Body: "hi there", Labels: []string{"INBOX"}},
	))
}

func newTestEnvelope(store *fakeStore) *Envelope {
	return &Envelope{
		Store:   store,
		Limiter: ratelimit.New(100, time.Minute),
		Provider: func(conn credential.Connection) (provider.Provider, error) {
			return newFixtureProvider(), nil
		},
	}
}

func TestDispatchRejectsMalformedBearer(t *testing.T) {
	e := newTestEnvelope(newFakeStore())
	_, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: "not-a-bearer", ToolName: "list_labels"})
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDispatchRejectsUnknownBearer(t *testing.T) {
	e := newTestEnvelope(newFakeStore())
	_, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "nope", ToolName: "list_labels"})
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDispatchRejectsRevokedCredential(t *testing.T) {
	store := newFakeStore()
	seedBearer(store, credential.BearerPrefix+"revoked", credential.Credential{ID: "cred1", ConnectionID: "conn1", Revoked: true}, credential.Connection{ID: "conn1", ProviderType: "memory"})
	e := newTestEnvelope(store)

	_, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "revoked", ToolName: "list_labels"})
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for revoked credential, got %v", err)
	}
}

func TestDispatchSucceedsAndTouchesLastUsed(t *testing.T) {
	store := newFakeStore()
	seedBearer(store, credential.BearerPrefix+"good", credential.Credential{ID: "cred1", ConnectionID: "conn1"}, credential.Connection{ID: "conn1", ProviderType: "memory"})
	e := newTestEnvelope(store)

	result, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "good", ToolName: "list_labels", Args: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result == nil {
		t.Fatal("expected a non-nil result")
	}
	if len(store.touched) != 1 || store.touched[0] != "cred1" {
		t.Errorf("expected cred1 touched once, got %v", store.touched)
	}
}

func TestDispatchRateLimited(t *testing.T) {
	store := newFakeStore()
	seedBearer(store, credential.BearerPrefix+"good", credential.Credential{ID: "cred1", ConnectionID: "conn1"}, credential.Connection{ID: "conn1", ProviderType: "memory"})
	e := newTestEnvelope(store)
	e.Limiter = ratelimit.New(1, time.Minute)

	if _, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "good", ToolName: "list_labels"}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	_, retryAfter, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "good", ToolName: "list_labels"})
	if err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if retryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", retryAfter)
	}
}

func TestDispatchUsesDefaultFilterConfigWhenUnset(t *testing.T) {
	store := newFakeStore()
	seedBearer(store, credential.BearerPrefix+"good", credential.Credential{ID: "cred1", ConnectionID: "conn1"}, credential.Connection{ID: "conn1", ProviderType: "memory"})
	e := newTestEnvelope(store)

	result, _, err := e.Dispatch(context.Background(), Request{SourceKey: "ip1", Bearer: credential.BearerPrefix + "good", ToolName: "search_emails", Args: json.RawMessage(`{"query":"hello"}`)})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result == nil {
		t.Fatal("expected a non-nil result")
	}
}
