// Package request implements the dispatch sequence every inbound tool
// call goes through: bearer extraction, rate limiting, credential
// resolution, filter-config resolution (cache-then-store), pipeline and
// provider construction, and tool execution, with observability events
// emitted at each stage (spec.md §4.7).
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agentcloak/mailproxy/cache"
	"github.com/agentcloak/mailproxy/credential"
	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/observe"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/ratelimit"
	"github.com/agentcloak/mailproxy/tool"
	"github.com/agentcloak/mailproxy/types"
)

// ProviderFactory builds the mailbox backend for a resolved connection.
// The proxy ships one concrete provider (provider.MemProvider, the seam
// used by its own tests); a deployment wires a real backend in here
// keyed by Connection.ProviderType.
type ProviderFactory func(conn credential.Connection) (provider.Provider, error)

// Envelope is the single entry point an HTTP (or other transport)
// handler calls for every tool invocation.
type Envelope struct {
	Store    credential.Store
	Cache    *cache.FilterConfigCache
	Limiter  *ratelimit.Limiter
	Sink     observe.Sink
	Provider ProviderFactory
}

// ErrRateLimited is returned when the source key has exceeded its
// attempt budget; the retryAfter value Dispatch returns alongside it
// tells the caller how long to wait.
var ErrRateLimited = errors.New("request: rate limited")

// ErrUnauthorized covers every bearer/credential failure: malformed
// prefix, unknown hash, or a revoked credential. The envelope never
// distinguishes these to a caller, to avoid leaking which part of the
// check failed.
var ErrUnauthorized = errors.New("request: unauthorized")

// Request is one inbound tool call.
type Request struct {
	// SourceKey identifies the caller for rate limiting (typically the
	// source IP).
	SourceKey string
	Bearer    string
	ToolName  string
	Args      []byte
}

// Dispatch runs the full envelope sequence and returns the tool's
// result or a *types.ToolError / sentinel error describing why the
// request never reached the tool.
func (e *Envelope) Dispatch(ctx context.Context, req Request) (result any, retryAfter time.Duration, err error) {
	requestID := newRequestID()
	start := time.Now()

	if e.Limiter != nil {
		rl := e.Limiter.Allow(req.SourceKey)
		e.emit(ctx, observe.Event{Kind: observe.KindRateLimit, RequestID: requestID, Status: statusFor(rl.Allowed)})
		if !rl.Allowed {
			return nil, rl.RetryAfter, ErrRateLimited
		}
	}

	cred, conn, err := e.resolveCredential(ctx, requestID, req.Bearer)
	if err != nil {
		return nil, 0, err
	}

	cfg, err := e.resolveFilterConfig(ctx, requestID, cred.ConnectionID)
	if err != nil {
		e.emitAuth(ctx, requestID, cred, observe.StatusFailed, err.Error())
		return nil, 0, fmt.Errorf("request: resolving filter config: %w", err)
	}
	e.emitAuth(ctx, requestID, cred, observe.StatusCompleted, "")

	prov, err := e.Provider(conn)
	if err != nil {
		return nil, 0, fmt.Errorf("request: constructing provider: %w", err)
	}
	pipeline := filter.NewPipeline(cfg)

	e.emit(ctx, observe.Event{Kind: observe.KindPipeline, RequestID: requestID, CredentialID: cred.ID, ConnectionID: cred.ConnectionID, Status: observe.StatusStarted})

	result, execErr := tool.ExecuteTool(ctx, req.ToolName, pipeline, prov, req.Args)

	toolStatus := observe.StatusCompleted
	toolErrMsg := ""
	if execErr != nil {
		toolStatus = observe.StatusFailed
		toolErrMsg = execErr.Error()
	}
	e.emit(ctx, observe.Event{
		Kind:         observe.KindTool,
		RequestID:    requestID,
		CredentialID: cred.ID,
		ConnectionID: cred.ConnectionID,
		ToolName:     req.ToolName,
		Status:       toolStatus,
		Error:        toolErrMsg,
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if e.Store != nil {
		// Best effort: a failed last-used touch never fails the request.
		_ = e.Store.TouchCredentialLastUsed(ctx, cred.ID)
	}

	return result, 0, execErr
}

func (e *Envelope) resolveCredential(ctx context.Context, requestID, bearer string) (credential.Credential, credential.Connection, error) {
	if !strings.HasPrefix(bearer, credential.BearerPrefix) {
		e.emit(ctx, observe.Event{Kind: observe.KindAuth, RequestID: requestID, Status: observe.StatusFailed, Error: "malformed bearer prefix"})
		return credential.Credential{}, credential.Connection{}, ErrUnauthorized
	}

	hash := credential.HashBearer(bearer)
	cred, err := e.Store.ResolveCredential(ctx, hash)
	if err != nil || cred.Revoked {
		e.emit(ctx, observe.Event{Kind: observe.KindAuth, RequestID: requestID, Status: observe.StatusFailed, Error: "credential not found or revoked"})
		return credential.Credential{}, credential.Connection{}, ErrUnauthorized
	}

	conn, err := e.Store.GetConnection(ctx, cred.ConnectionID)
	if err != nil {
		e.emit(ctx, observe.Event{Kind: observe.KindAuth, RequestID: requestID, CredentialID: cred.ID, Status: observe.StatusFailed, Error: "connection lookup failed"})
		return credential.Credential{}, credential.Connection{}, ErrUnauthorized
	}

	return cred, conn, nil
}

func (e *Envelope) resolveFilterConfig(ctx context.Context, requestID, connectionID string) (*types.FilterConfig, error) {
	if e.Cache != nil {
		cfg, err := e.Cache.Get(ctx, connectionID)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			// Cache unavailable: fall through to the store rather than fail
			// the request over an optional acceleration layer.
			_ = err
		}
	}

	cfg, err := e.Store.GetFilterConfig(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if e.Cache != nil {
		_ = e.Cache.Set(ctx, connectionID, cfg)
	}
	return cfg, nil
}

func (e *Envelope) emitAuth(ctx context.Context, requestID string, cred credential.Credential, status observe.Status, errMsg string) {
	e.emit(ctx, observe.Event{
		Kind:         observe.KindAuth,
		RequestID:    requestID,
		CredentialID: cred.ID,
		ConnectionID: cred.ConnectionID,
		Status:       status,
		Error:        errMsg,
	})
}

func (e *Envelope) emit(ctx context.Context, event observe.Event) {
	if e.Sink == nil {
		return
	}
	event.Normalize()
	_ = e.Sink.Emit(ctx, event)
}

func statusFor(allowed bool) observe.Status {
	if allowed {
		return observe.StatusCompleted
	}
	return observe.StatusFailed
}

var requestSeq atomic.Uint64

func newRequestID() string {
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), requestSeq.Add(1))
}
