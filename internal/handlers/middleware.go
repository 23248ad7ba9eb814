package handlers

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/fcv-2025.net/assessment/internal/adapter/backend"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers/response"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

type identityKey struct{}

type MiddlewareProvider struct {
	jwt    primary.JWTService
	logger primary.Logger
}

func New(jwt primary.JWTService, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		jwt:    jwt,
		logger: logger,
	}
}

// JWTMiddleware verifies the bearer token, puts the caller's identity in the
// request context and forwards the token to backend calls
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.FromError(w, errs.MissingToken)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		identity, err := m.jwt.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("Rejected token", "path", r.URL.Path, "error", err)
			response.FromError(w, errs.InvalidToken)
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		ctx = backend.WithToken(ctx, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithIdentity(ctx context.Context, identity domain.AuthPayload) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (domain.AuthPayload, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.AuthPayload)
	return identity, ok
}
