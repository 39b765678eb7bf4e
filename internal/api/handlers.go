package api

import (
	"net/http"
	"time"

	"fieldops/ledgersync/internal/auth"
	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
)

type Handlers struct {
	deps *Dependencies
	now  func() time.Time
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
		now:  time.Now,
	}
}

// requireClaims writes a 401 and returns nil when the request carries no
// identity.
func requireClaims(w http.ResponseWriter, r *http.Request, start time.Time) auth.UserClaims {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		common.RespondError(w, start, nil, constants.ErrCodeUnauthorized, http.StatusUnauthorized)
		return nil
	}
	return claims
}
