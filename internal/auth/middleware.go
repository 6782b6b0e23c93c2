package auth

import (
	"context"
	"net/http"
	"strings"

	"smartparking/internal/db"
	"smartparking/internal/entities"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/service"
)

type ctxKey struct{}

func WithIdentity(ctx context.Context, id entities.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (entities.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(entities.Identity)
	return id, ok
}

// Middleware requires a valid Bearer token and stores the caller's identity
// in the request context. Browsers' EventSource cannot set headers, so the
// token may also come in the access_token query parameter.
func Middleware(svc service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("access_token")
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
			if token == "" {
				apperrors.Write(w, apperrors.ErrUnauthorized("missing bearer token"))
				return
			}
			id, err := svc.ParseToken(token)
			if err != nil {
				apperrors.Write(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose identity does not carry role.
func RequireRole(role db.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				apperrors.Write(w, apperrors.ErrUnauthorized("not authenticated"))
				return
			}
			if id.Role != role {
				apperrors.Write(w, apperrors.ErrForbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
