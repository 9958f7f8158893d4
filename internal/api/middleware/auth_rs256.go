package middleware

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/ETAnderson/deskflow/internal/api/auth"
)

// Auth requires a valid RS256 bearer token. In dev, requests without an
// Authorization header pass through so local tooling keeps working.
type Auth struct {
	Env       string
	PublicKey *rsa.PublicKey
}

func (m Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := strings.TrimSpace(r.Header.Get("Authorization"))

		if strings.EqualFold(strings.TrimSpace(m.Env), "dev") && authz == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(authz, "Bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if tokenString == "" {
			unauthorized(w, "empty bearer token")
			return
		}

		if _, err := auth.ParseAndValidateRS256(tokenString, m.PublicKey); err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
