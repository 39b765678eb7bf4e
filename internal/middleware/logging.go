package middleware

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"fieldops/ledgersync/internal/auth"
	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
)

// Logging writes one structured line per request and turns panics into 500s.
// Claims are read after the handler runs, so it sits outside AuthMiddleware.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		holder := &claimsHolder{}
		r = r.WithContext(withClaimsHolder(r.Context(), holder))

		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Panic while serving request", "panic", rec, "stack", string(debug.Stack()))
				if !lw.written {
					common.RespondError(lw, start, errors.New("internal error"), constants.ErrCodeInternal, http.StatusInternalServerError)
				}
			}

			var tenantID, userID string
			if holder.claims != nil {
				tenantID, userID = holder.claims.TenantID(), holder.claims.UserID()
			}
			logging.WithRequest(auth.GetRequestID(r.Context()), tenantID, userID, routePattern(r)).Infow("HTTP request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", lw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}()

		next.ServeHTTP(lw, r)
	})
}

// claimsHolder lets Logging see the identity AuthMiddleware attaches further
// down the chain.
type claimsHolder struct {
	claims auth.UserClaims
}

type claimsHolderKey struct{}

func withClaimsHolder(ctx context.Context, h *claimsHolder) context.Context {
	return context.WithValue(ctx, claimsHolderKey{}, h)
}

func recordClaims(ctx context.Context, claims auth.UserClaims) {
	if h, ok := ctx.Value(claimsHolderKey{}).(*claimsHolder); ok {
		h.claims = claims
	}
}
