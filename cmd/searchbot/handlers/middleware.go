package handlers

import (
	"net/http"
	"strings"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"golang.org/x/crypto/bcrypt"
)

// TokenMiddleware requires a bearer token matching a bcrypt hash. With an
// empty hash every request passes.
type TokenMiddleware struct {
	tokenHash []byte
	logger    logger.Logger
}

// NewTokenMiddleware creates a new bearer token middleware.
func NewTokenMiddleware(tokenHash string, log logger.Logger) *TokenMiddleware {
	return &TokenMiddleware{
		tokenHash: []byte(tokenHash),
		logger:    log,
	}
}

// Handler wraps an HTTP handler with token authentication.
func (m *TokenMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.tokenHash) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		rawToken := strings.TrimPrefix(authHeader, "Bearer ")
		if err := bcrypt.CompareHashAndPassword(m.tokenHash, []byte(rawToken)); err != nil {
			m.logger.Warn(r.Context(), "invalid bearer token", map[string]interface{}{
				"path": r.URL.Path,
			})
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HashToken returns the bcrypt hash to configure for a token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
