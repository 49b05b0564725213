package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
)

type contextKey string

const userKey contextKey = "user"

// authenticate resolves the bearer token to a user identity and stores
// it on the request context. Identity verification internals live
// behind the TokenVerifier port.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, domain.ErrAuth)
			return
		}

		userID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, domain.ErrAuth)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func userFrom(r *http.Request) string {
	if v, ok := r.Context().Value(userKey).(string); ok {
		return v
	}
	return ""
}

// StaticVerifier is the development token verifier: the bearer token is
// "<key>" or "<key>:<user>". Production deployments supply a real
// TokenVerifier instead.
type StaticVerifier struct {
	Key string
}

// Verify implements ports.TokenVerifier.
func (v StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	if v.Key == "" {
		// No key configured: the token itself is the identity.
		return token, nil
	}
	key, user, found := strings.Cut(token, ":")
	if key != v.Key {
		return "", fmt.Errorf("%w: unknown api key", domain.ErrAuth)
	}
	if !found || user == "" {
		user = "default"
	}
	return user, nil
}
