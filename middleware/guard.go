package middleware

import (
	"context"
	"net/http"

	authgate "github.com/authgate/authgate"
)

type identityContextKey struct{}

func IdentityFromContext(ctx context.Context) (*authgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authgate.Identity)
	return id, ok
}

func Guard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authgate.WithUserAgent(r.Context(), r.UserAgent())
			ctx = authgate.WithClientIP(ctx, r.RemoteAddr)

			identity, err := engine.Authenticate(ctx, r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, http.StatusText(authgate.HTTPStatus(err)), authgate.HTTPStatus(err))
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
