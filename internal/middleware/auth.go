package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fieldops/ledgersync/internal/auth"
	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/models/entities"
)

// APIKeyLookup resolves an active machine key. Unknown or revoked keys
// return nil with no error.
type APIKeyLookup interface {
	GetActive(ctx context.Context, key string) (*entities.ApiKey, error)
}

// AuthMiddleware accepts either a bearer JWT or an X-API-Key header and
// stores the resulting claims on the request context.
func AuthMiddleware(jwtSecret string, keys APIKeyLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			authHeader := r.Header.Get("Authorization")
			apiKey := r.Header.Get("X-API-Key")

			var claims auth.UserClaims

			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				c, err := auth.ParseBearer(jwtSecret, strings.TrimPrefix(authHeader, "Bearer "))
				if err != nil {
					common.RespondError(w, start, err, constants.ErrCodeUnauthorized, http.StatusUnauthorized)
					return
				}
				claims = c

			case apiKey != "":
				key, err := keys.GetActive(r.Context(), apiKey)
				if err != nil {
					logging.Error("API key lookup failed", "error", err)
					common.RespondError(w, start, errors.New("unable to verify API key"), constants.ErrCodeInternal, http.StatusInternalServerError)
					return
				}
				if key == nil {
					common.RespondError(w, start, errors.New("invalid or inactive API key"), constants.ErrCodeUnauthorized, http.StatusUnauthorized)
					return
				}
				claims = auth.ClaimsFromAPIKey(key)

			default:
				common.RespondError(w, start, errors.New("missing credentials"), constants.ErrCodeUnauthorized, http.StatusUnauthorized)
				return
			}

			recordClaims(r.Context(), claims)
			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers ranked below min with 403. It must run after
// AuthMiddleware.
func RequireRole(min constants.Role) func(http.Handler) http.Handler {
	return RequireRoleFunc(func(*http.Request) constants.Role { return min })
}

// RequireRoleFunc picks the minimum role per request, for routes whose
// URL parameters decide how sensitive they are. It must be installed with
// chi's With so route parameters are already resolved.
func RequireRoleFunc(minFor func(r *http.Request) constants.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetUserClaims(r.Context())
			if claims == nil {
				common.RespondError(w, time.Now(), errors.New("missing credentials"), constants.ErrCodeUnauthorized, http.StatusUnauthorized)
				return
			}
			if !claims.Role().AtLeast(minFor(r)) {
				common.RespondError(w, time.Now(), nil, constants.ErrCodeForbidden, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
