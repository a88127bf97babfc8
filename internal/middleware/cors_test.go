package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	cases := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"explicit", []string{"http://localhost:3000/"}, "http://localhost:3000", http.MethodGet, "http://localhost:3000", "true", http.StatusTeapot},
		{"wildcard", []string{"*"}, "https://evil.example", http.MethodGet, "https://evil.example", "", http.StatusTeapot},
		{"rejected", []string{"https://app.example"}, "https://evil.example", http.MethodGet, "", "", http.StatusTeapot},
		{"preflight", []string{"https://app.example"}, "https://app.example", http.MethodOptions, "https://app.example", "true", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/api/chats", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()

		CORS(tc.allowed)(next).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
			t.Errorf("%s: expected origin %q, got %q", tc.name, tc.wantOrigin, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
			t.Errorf("%s: expected credentials %q, got %q", tc.name, tc.wantCreds, got)
		}
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: expected status %d, got %d", tc.name, tc.wantStatus, rec.Code)
		}
	}
}
