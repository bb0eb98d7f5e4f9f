package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func protected(t *testing.T, auth *JWTAuth) (http.Handler, *int64) {
	t.Helper()
	var seen int64
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	auth := NewJWTAuth("test-secret", time.Hour)
	token, err := auth.GenerateAccessToken(42, "ada")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	h, seen := protected(t, auth)
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if *seen != 42 {
		t.Fatalf("expected user id 42 in context, got %d", *seen)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	auth := NewJWTAuth("test-secret", time.Hour)
	expired := NewJWTAuth("test-secret", -time.Minute)
	expiredToken, _ := expired.GenerateAccessToken(1, "ada")
	foreign := NewJWTAuth("other-secret", time.Hour)
	foreignToken, _ := foreign.GenerateAccessToken(1, "ada")

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "UNAUTHORIZED"},
		{"wrong secret", "Bearer " + foreignToken, "UNAUTHORIZED"},
		{"expired", "Bearer " + expiredToken, "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := protected(t, auth)
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := errorCode(t, rr); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
		})
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	auth := NewJWTAuth("test-secret", time.Hour)
	claims := Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuerName}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expected unsigned token to be rejected")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit(); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", code)
	}

	now = now.Add(61 * time.Second)
	if code := hit(); code != http.StatusOK {
		t.Fatalf("expected new window to allow, got %d", code)
	}

	now = now.Add(2 * time.Minute)
	rl.evict()
	if len(rl.visitors) != 0 {
		t.Fatalf("expected idle visitors to be evicted, have %d", len(rl.visitors))
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id echoed back, got %q / %q", seen, rr.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected client id to be kept, got %q", seen)
	}
}
