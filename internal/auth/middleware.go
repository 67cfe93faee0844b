package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// Authenticate resolves the caller from the Authorization header and stores
// it in the request context. Requests without the header, or whose user no
// longer exists, continue as anonymous; a malformed or invalid token is
// rejected with 401.
func Authenticate(resolver *Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if isTokenError(err) {
					logger.Warn("rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				logger.Error("failed to resolve caller", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// Require lets the request through only when policy permits the caller.
// Rejected requests get 403 and never reach next.
func Require(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy(IdentityFromContext(r.Context())) {
				writeError(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
