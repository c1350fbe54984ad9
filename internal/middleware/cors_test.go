package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newPolicy(t *testing.T) *OriginPolicy {
	t.Helper()
	policy, err := NewOriginPolicy([]string{"http://localhost:3000"}, `^https://.*\.vercel\.app$`)
	if err != nil {
		t.Fatalf("NewOriginPolicy err: %v", err)
	}
	return policy
}

func TestOriginPolicyAllowed(t *testing.T) {
	policy := newPolicy(t)

	cases := map[string]bool{
		"http://localhost:3000":            true,
		"https://coach-preview.vercel.app": true,
		"http://coach.vercel.app":          false,
		"https://evil.example.com":         false,
		"":                                 false,
	}
	for origin, want := range cases {
		if got := policy.Allowed(origin); got != want {
			t.Fatalf("Allowed(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestNewOriginPolicyRejectsBadPattern(t *testing.T) {
	if _, err := NewOriginPolicy(nil, "(["); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestCORSHeaders(t *testing.T) {
	handler := CORS(newPolicy(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://coach.vercel.app")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://coach.vercel.app" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin, got %q", got)
	}
}
