package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"front50store/internal/identity"
)

const tokenHeader = "X-Front50store-Token"

func (s *Server) requireWriteAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorizeRequest(r) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorizeRequest accepts any of the configured comma-separated tokens so
// they can be rotated without downtime. No configured token allows everything.
func (s *Server) authorizeRequest(r *http.Request) bool {
	if len(s.tokens) == 0 {
		return true
	}

	candidate := strings.TrimSpace(r.Header.Get(tokenHeader))
	if candidate == "" {
		return false
	}

	matched := 0
	for _, token := range s.tokens {
		matched |= subtle.ConstantTimeCompare([]byte(token), []byte(candidate))
	}
	return matched == 1
}

func parseAuthTokens(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// withIdentity moves the gateway-supplied user header onto the request context.
func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get(identity.Header); user != "" {
			r = r.WithContext(identity.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}
