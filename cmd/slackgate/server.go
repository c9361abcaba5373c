package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mpopa/slackgate/pkg/auth"
	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

const (
	maxBodyBytes    = 1 << 20 // 1 MB
	maxRateLimiters = 10_000
)

// toolDispatcher is the session layer's view of the dispatch core.
type toolDispatcher interface {
	Dispatch(ctx context.Context, toolName string, args map[string]any) envelope.Result
}

// callRequest is the session-protocol framing of one tool call.
type callRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ServerConfig wires the session layer's collaborators.
type ServerConfig struct {
	Log            *slog.Logger
	Dispatcher     toolDispatcher
	Registry       *registry.Registry
	PerCallerLimit int
}

// Server frames tool calls over HTTP/JSON and hands them to the dispatcher.
type Server struct {
	log        *slog.Logger
	dispatcher toolDispatcher
	registry   *registry.Registry

	rateLimiters   map[string]*rate.Limiter
	rlOrder        []string
	rlMu           sync.Mutex
	perCallerLimit int
}

// NewServer creates the session-layer server.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:            log,
		dispatcher:     cfg.Dispatcher,
		registry:       cfg.Registry,
		rateLimiters:   make(map[string]*rate.Limiter),
		perCallerLimit: cfg.PerCallerLimit,
	}
}

// HandleCallTool is POST /v1/tools/call. Well-formed requests always receive
// HTTP 200 with a result envelope; only framing-level faults (bad JSON, rate
// limiting) use other status codes.
func (s *Server) HandleCallTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Tool == "" {
		auth.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "tool is required")
		return
	}

	if !s.allowRate(auth.CallerFromContext(ctx)) {
		auth.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		return
	}

	result := s.dispatcher.Dispatch(ctx, req.Tool, req.Arguments)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.ErrorContext(ctx, "response encode failed", "error", err)
	}
}

// HandleListTools is GET /v1/tools. It exposes the fixed tool surface: name,
// argument schema, and credential class per tool.
func (s *Server) HandleListTools(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"tools": s.registry.List(),
	}); err != nil {
		s.log.ErrorContext(r.Context(), "response encode failed", "error", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Rate limiting (bounded map with eviction)
// ──────────────────────────────────────────────────────────────────────────────

func (s *Server) allowRate(callerID string) bool {
	s.rlMu.Lock()
	defer s.rlMu.Unlock()

	lim, ok := s.rateLimiters[callerID]
	if ok {
		// Move to end of LRU order.
		for i, k := range s.rlOrder {
			if k == callerID {
				s.rlOrder = append(s.rlOrder[:i], s.rlOrder[i+1:]...)
				break
			}
		}
		s.rlOrder = append(s.rlOrder, callerID)
		return lim.Allow()
	}

	if len(s.rateLimiters) >= maxRateLimiters {
		oldest := s.rlOrder[0]
		s.rlOrder = s.rlOrder[1:]
		delete(s.rateLimiters, oldest)
	}

	lim = rate.NewLimiter(rate.Limit(s.perCallerLimit), s.perCallerLimit*2)
	s.rateLimiters[callerID] = lim
	s.rlOrder = append(s.rlOrder, callerID)
	return lim.Allow()
}
