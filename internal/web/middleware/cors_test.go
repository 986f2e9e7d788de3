package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllowed string
	}{
		{"listed origin", []string{"https://app.example.com"}, "https://app.example.com", "https://app.example.com"},
		{"listed origin trailing slash in config", []string{"https://app.example.com/"}, "https://app.example.com", "https://app.example.com"},
		{"unlisted origin", []string{"https://app.example.com"}, "https://evil.example.com", ""},
		{"localhost always", nil, "http://localhost:5173", "http://localhost:5173"},
		{"localhost lookalike", nil, "http://localhost.evil.com", ""},
		{"wildcard", []string{"*"}, "https://anything.example.com", "*"},
		{"wildcard keeps listed origin", []string{"*", "https://app.example.com"}, "https://app.example.com", "https://app.example.com"},
		{"no origin header", []string{"https://app.example.com"}, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			recorder := httptest.NewRecorder()

			CORS(tc.origins)(okHandler).ServeHTTP(recorder, req)

			if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllowed {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tc.wantAllowed)
			}
			if tc.wantAllowed == "*" && recorder.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must not be allowed for wildcard origins")
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()

	CORS(nil)(next).ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", recorder.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
	if recorder.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected allowed methods header")
	}
}
