package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/startblog/apiserver/internal/services"
	"github.com/startblog/apiserver/types"
)

// RequireAuth enforces a valid access token and injects its claims into
// the request context. All verification failures produce the same
// opaque 401.
func RequireAuth(authorizer *services.Authorizer) func(http.Handler) http.Handler {
	return guard(authorizer, "")
}

// RequireRole enforces a valid access token carrying the given role.
// An authenticated caller without the role gets 403.
func RequireRole(authorizer *services.Authorizer, role types.Role) func(http.Handler) http.Handler {
	return guard(authorizer, role)
}

func guard(authorizer *services.Authorizer, role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authorizer.Authorize(r.Header.Get("Authorization"), role)
			if err != nil {
				if errors.Is(err, services.ErrForbidden) {
					writeError(w, http.StatusForbidden, "forbidden")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
