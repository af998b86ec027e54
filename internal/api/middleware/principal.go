package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/botgrid/gateway/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// SetPrincipal stores the resolved principal in the context.
func SetPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the request's principal from the context.
// Requests that never passed the resolver read as anonymous.
func GetPrincipal(ctx context.Context) auth.Principal {
	if p, ok := ctx.Value(principalKey).(auth.Principal); ok {
		return p
	}
	return auth.Anonymous
}

// PrincipalResolver resolves the identity of every inbound request and
// stores it in the request context.
//
// Resolution never blocks the pipeline: a credential that fails
// verification is logged and the request continues as anonymous.
// Authorization decisions happen later, per operation.
func PrincipalResolver(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := verifier.Resolve(r.Context(), r)
			if err != nil {
				log.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Msg("identity verification failed, continuing as anonymous")
			}
			ctx := SetPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
