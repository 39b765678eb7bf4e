package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/models/dtos"
	"fieldops/ledgersync/internal/services"
)

// Connect handles POST /api/v1/accounting/connect. The caller is sent to
// the returned URL to approve access on the platform.
func (h *Handlers) Connect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		authURL, err := h.deps.Services.Connections.BeginConnect(r.Context(), claims.TenantID(), claims.UserID())
		if err != nil {
			respondServiceError(w, start, err)
			return
		}
		common.RespondSuccess(w, start, "redirect to authorize", dtos.ConnectResponse{AuthorizationURL: authURL})
	}
}

// OAuthCallback handles GET /api/v1/accounting/callback. It is unauthenticated;
// the signed state carries the tenant.
func (h *Handlers) OAuthCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()

		if denied := q.Get("error"); denied != "" {
			h.finishCallback(w, r, start, "denied", errors.New("authorization was declined: "+denied), http.StatusBadRequest, constants.ErrCodeInvalidRequest)
			return
		}

		cred, err := h.deps.Services.Connections.CompleteConnect(r.Context(), q.Get("state"), q.Get("code"), q.Get("realmId"))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrCallbackIncomplete),
			errors.Is(err, common.ErrStateInvalid),
			errors.Is(err, common.ErrStateConsumed):
			h.finishCallback(w, r, start, "error", err, http.StatusBadRequest, constants.ErrCodeInvalidRequest)
			return
		default:
			status, code := HTTPStatus(err)
			h.finishCallback(w, r, start, "error", err, status, code)
			return
		}

		if target := h.redirectTarget("connected"); target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		common.RespondSuccess(w, start, "connected", dtos.ConnectionStatusResponse{
			Connected:   true,
			RealmID:     cred.RealmID,
			ExpiresAt:   &cred.ExpiresAt,
			ConnectedBy: cred.ConnectedBy,
		})
	}
}

func (h *Handlers) finishCallback(w http.ResponseWriter, r *http.Request, start time.Time, outcome string, err error, status int, code string) {
	logging.Warn("OAuth callback failed", "error", err, "code", code)
	if target := h.redirectTarget(outcome); target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	common.RespondError(w, start, err, code, status)
}

func (h *Handlers) redirectTarget(outcome string) string {
	base := h.deps.Config.Auth.OAuthRedirectApp
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("accounting", outcome)
	u.RawQuery = q.Encode()
	return u.String()
}

// Disconnect handles DELETE /api/v1/accounting/connection
func (h *Handlers) Disconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		if err := h.deps.Services.Connections.Disconnect(r.Context(), claims.TenantID()); err != nil {
			respondServiceError(w, start, err)
			return
		}
		common.RespondSuccess(w, start, "disconnected", dtos.ConnectionStatusResponse{Connected: false})
	}
}

// ConnectionStatus handles GET /api/v1/accounting/connection
func (h *Handlers) ConnectionStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		cred, err := h.deps.Services.Connections.Connection(r.Context(), claims.TenantID())
		if err != nil {
			respondServiceError(w, start, err)
			return
		}

		resp := dtos.ConnectionStatusResponse{}
		if cred != nil {
			connectedAt := cred.UpdatedAt
			resp = dtos.ConnectionStatusResponse{
				Connected:             true,
				RealmID:               cred.RealmID,
				ExpiresAt:             &cred.ExpiresAt,
				RefreshTokenExpiresAt: cred.RefreshTokenExpiresAt,
				ConnectedBy:           cred.ConnectedBy,
				ConnectedAt:           &connectedAt,
			}
		}
		common.RespondSuccess(w, start, "connection status", resp)
	}
}
