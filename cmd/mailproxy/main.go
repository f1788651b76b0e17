// Command mailproxy runs the mail access proxy: an HTTP surface that
// authenticates a bearer token, resolves its filter policy, and
// dispatches a named tool against the connection's mailbox provider.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentcloak/mailproxy/cache"
	"github.com/agentcloak/mailproxy/credential"
	credsqlite "github.com/agentcloak/mailproxy/credential/sqlite"
	"github.com/agentcloak/mailproxy/internal/config"
	"github.com/agentcloak/mailproxy/observe"
	observeotel "github.com/agentcloak/mailproxy/observe/otel"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/ratelimit"
	"github.com/agentcloak/mailproxy/request"
	"github.com/agentcloak/mailproxy/tool"
	"github.com/agentcloak/mailproxy/types"

	humanize "github.com/dustin/go-humanize"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := credsqlite.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("credential store close: %v", err)
		}
	}()

	var filterCache *cache.FilterConfigCache
	if c, err := cache.New(ctx, cfg.RedisAddr, cache.WithTTL(cfg.FilterCacheTTL)); err != nil {
		log.Printf("filter config cache unavailable, falling back to store on every request: %v", err)
	} else {
		filterCache = c
		defer filterCache.Close()
	}

	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	gcStop := make(chan struct{})
	go limiter.StartGC(cfg.RateLimitGCEvery, gcStop)
	defer close(gcStop)

	sink := observe.NewAsyncSink(observeotel.NewSink(nil), 256)

	env := &request.Envelope{
		Store:   store,
		Cache:   filterCache,
		Limiter: limiter,
		Sink:    sink,
		Provider: func(conn credential.Connection) (provider.Provider, error) {
			switch conn.ProviderType {
			case "memory", "":
				return provider.New(), nil
			default:
				return nil, fmt.Errorf("unsupported provider type %q", conn.ProviderType)
			}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tools", handleCatalog)
	mux.HandleFunc("/v1/tools/", handleDispatch(env))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("mailproxy listening on %s (%s registered tools, rate limit %d/%s)",
		cfg.HTTPAddr, humanize.Comma(int64(len(tool.Catalog()))), cfg.RateLimitMax, cfg.RateLimitWindow)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	log.Println("stopped")
}

func handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, tool.Catalog())
}

func handleDispatch(env *request.Envelope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		toolName := r.URL.Path[len("/v1/tools/"):]
		if toolName == "" {
			http.Error(w, "missing tool name", http.StatusBadRequest)
			return
		}

		bearer := bearerFromHeader(r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		result, retryAfter, err := env.Dispatch(r.Context(), request.Request{
			SourceKey: sourceKey(r),
			Bearer:    bearer,
			ToolName:  toolName,
			Args:      body,
		})
		if err != nil {
			writeDispatchError(w, err, retryAfter)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// writeDispatchError renders a failed dispatch. A *types.ToolError is
// part of the tool result contract (spec.md §7) and is written as a
// normal 200 JSON body; everything else is an envelope-level failure
// that never reached a tool.
func writeDispatchError(w http.ResponseWriter, err error, retryAfter time.Duration) {
	var toolErr *types.ToolError
	if errors.As(err, &toolErr) {
		writeJSON(w, http.StatusOK, toolErr)
		return
	}

	switch {
	case errors.Is(err, request.ErrUnauthorized):
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Is(err, request.ErrRateLimited):
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
		w.WriteHeader(http.StatusTooManyRequests)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = w.Write([]byte(err.Error()))
}

func bearerFromHeader(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
		return authHeader[len(prefix):]
	}
	return authHeader
}

func sourceKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
