package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"hookline/internal/pkg/errors"
)

// ServiceTokenMiddleware guards the internal event-ingest routes. The event
// source presents a bearer token that must match the configured bcrypt hash.
type ServiceTokenMiddleware struct {
	tokenHash []byte
}

func NewServiceTokenMiddleware(tokenHash string) *ServiceTokenMiddleware {
	return &ServiceTokenMiddleware{tokenHash: []byte(tokenHash)}
}

func (m *ServiceTokenMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing service token", nil)
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.tokenHash, []byte(parts[1])); err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid service token", nil)
			return
		}

		next(w, r)
	}
}
