// Package auth authenticates callers at the session boundary.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const callerKey contextKey = "caller_id"

// CallerFromContext extracts the authenticated caller ID from the context.
func CallerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}

// transportError is the shape written for session-level faults (auth, rate
// limiting, malformed framing). Tool-call outcomes use the envelope instead.
type transportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a transport-level error as JSON.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(transportError{Code: code, Message: message})
}

// APIKeyAuth returns middleware that validates API keys and sets the caller
// ID on the request context. An empty key store rejects everything except
// the health endpoints.
func APIKeyAuth(keys *KeyStore) func(http.Handler) http.Handler {
	skipPaths := map[string]bool{
		"/healthz": true,
		"/readyz":  true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				// Also check Authorization: Bearer
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing API key")
				return
			}

			callerID, ok := keys.Lookup(apiKey)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
