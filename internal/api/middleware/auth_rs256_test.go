package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ETAnderson/deskflow/internal/api/auth"
)

func protectedHandler(t *testing.T, m Auth) (http.Handler, *int) {
	t.Helper()

	hits := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	})
	return m.Handler(next), &hits
}

func TestAuth_DevBypassWithoutHeader(t *testing.T) {
	h, hits := protectedHandler(t, Auth{Env: "dev"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches", nil))

	if rec.Code != http.StatusNoContent || *hits != 1 {
		t.Fatalf("status = %d, hits = %d", rec.Code, *hits)
	}
}

func TestAuth_ProdRequiresToken(t *testing.T) {
	h, hits := protectedHandler(t, Auth{Env: "prod"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches", nil))

	if rec.Code != http.StatusUnauthorized || *hits != 0 {
		t.Fatalf("status = %d, hits = %d", rec.Code, *hits)
	}
}

func TestAuth_ValidAndInvalidTokens(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	h, hits := protectedHandler(t, Auth{Env: "prod", PublicKey: &priv.PublicKey})

	token, err := auth.SignRS256ForTests(priv, "loader-job", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || *hits != 1 {
		t.Fatalf("valid token: status = %d, hits = %d", rec.Code, *hits)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d", rec.Code)
	}

	expired, err := auth.SignRS256ForTests(priv, "loader-job", -2*time.Minute)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: status = %d", rec.Code)
	}
}
