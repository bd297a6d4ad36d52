package storeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/rpggio/fieldwork/internal/store"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type rangerKey struct{}

// RangerResolver resolves a ranger ID from a bearer token.
type RangerResolver interface {
	ResolveRanger(ctx context.Context, token string) (string, error)
}

// JWTResolver verifies HS256 tokens whose subject is the ranger id.
type JWTResolver struct {
	Config auth.Config
}

func (r JWTResolver) ResolveRanger(_ context.Context, token string) (string, error) {
	claims, err := auth.Parse(token, r.Config)
	if err != nil {
		return "", errors.Join(ErrUnauthorized, err)
	}
	return claims.RangerID, nil
}

// RangerFromContext returns the authenticated ranger ID, if present.
func RangerFromContext(ctx context.Context) (string, bool) {
	rangerID, ok := ctx.Value(rangerKey{}).(string)
	return rangerID, ok && rangerID != ""
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver RangerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				writeProblem(w, http.StatusUnauthorized, store.CodeUnauthenticated, "missing bearer token")
				return
			}

			rangerID, err := resolver.ResolveRanger(r.Context(), token)
			if err != nil || rangerID == "" {
				writeProblem(w, http.StatusUnauthorized, store.CodeUnauthenticated, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), rangerKey{}, rangerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
