package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/listini-pricing/api/responses"
	pkgAuth "github.com/angelmondragon/listini-pricing/pkg/auth"
	"github.com/angelmondragon/listini-pricing/pkg/config"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the caller's
// id and an Authorizer derived from the token claims.
func Auth(cfg config.JWTConfig, policy pkgAuth.PriceEditPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithAuthorizer(ctx, policy.For(claims))

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"user_level": claims.Level,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
