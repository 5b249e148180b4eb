package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	in  bool
	err error
}

func (f fakeChecker) LoggedIn(context.Context) (bool, error) { return f.in, f.err }

func TestRequireLogin(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeChecker
		want    int
	}{
		{"logged in", fakeChecker{in: true}, http.StatusOK},
		{"logged out", fakeChecker{in: false}, http.StatusUnauthorized},
		{"store error", fakeChecker{err: errors.New("disk")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		reached := false
		handler := RequireLogin(tt.checker, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/home", nil))

		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if reached != (tt.want == http.StatusOK) {
			t.Errorf("%s: reached handler = %v", tt.name, reached)
		}
		if tt.want != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("%s: Content-Type = %q", tt.name, rec.Header().Get("Content-Type"))
		}
	}
}
