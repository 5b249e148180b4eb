package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// LoginChecker reports whether the device account is logged in.
type LoginChecker interface {
	LoggedIn(ctx context.Context) (bool, error)
}

// RequireLogin rejects requests with 401 while the account is logged out.
func RequireLogin(checker LoginChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			in, err := checker.LoggedIn(r.Context())
			if err != nil {
				logger.Error("check login", "error", err, "request_id", RequestID(r.Context()))
				writeError(w, http.StatusInternalServerError, "failed to check login")
				return
			}
			if !in {
				writeError(w, http.StatusUnauthorized, "login required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
