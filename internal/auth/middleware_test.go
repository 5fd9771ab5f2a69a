package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func newTestMiddleware(t *testing.T) *Middleware {
	t.Helper()
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	return NewMiddleware(verifier)
}

func TestVerifyTokenExtractsClaims(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	signed := signToken(t, jwt.MapClaims{
		"sub":    "operator-1",
		"scopes": []interface{}{"read", "control"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.VerifyToken(signed)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Subject != "operator-1" {
		t.Errorf("Expected subject operator-1, got %s", claims.Subject)
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != "read" || claims.Scopes[1] != "control" {
		t.Errorf("Unexpected scopes %v", claims.Scopes)
	}
}

func TestVerifyTokenRejectsBadSignature(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}

	if _, err := verifier.VerifyToken(signed); err == nil {
		t.Error("Expected verification failure for bad signature")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	signed := signToken(t, jwt.MapClaims{
		"sub": "operator-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := verifier.VerifyToken(signed); err == nil {
		t.Error("Expected verification failure for expired token")
	}
}

func TestVerifyTokenRequiresSubject(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	signed := signToken(t, jwt.MapClaims{"scopes": []interface{}{"read"}})
	if _, err := verifier.VerifyToken(signed); err == nil {
		t.Error("Expected verification failure without sub claim")
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/link", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthPassesClaimsThrough(t *testing.T) {
	m := newTestMiddleware(t)

	var gotUser string
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
	}))

	signed := signToken(t, jwt.MapClaims{
		"sub":    "operator-1",
		"scopes": []interface{}{"read"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/link", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if gotUser != "operator-1" {
		t.Errorf("Expected operator-1 in context, got %s", gotUser)
	}
}

func TestRequireScopeEnforcesScopes(t *testing.T) {
	m := newTestMiddleware(t)
	handler := m.RequireAuth(m.RequireScope(ScopeControl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	readOnly := signToken(t, jwt.MapClaims{
		"sub":    "viewer-1",
		"scopes": []interface{}{"read", "telemetry"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/link/enable", nil)
	req.Header.Set("Authorization", "Bearer "+readOnly)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for missing control scope, got %d", rec.Code)
	}

	control := signToken(t, jwt.MapClaims{
		"sub":    "operator-1",
		"scopes": []interface{}{"read", "control"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/link/enable", nil)
	req.Header.Set("Authorization", "Bearer "+control)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 with control scope, got %d", rec.Code)
	}
}

func TestUserFromContextDefaultsToUnknown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserFromContext(req.Context()); got != "unknown" {
		t.Errorf("Expected unknown, got %s", got)
	}
}
