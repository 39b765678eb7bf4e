package api

import (
	"net/http"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/services"
)

var statusByCode = map[string]int{
	constants.ErrCodeNotConnected:     http.StatusUnauthorized,
	constants.ErrCodeAuthFailed:       http.StatusUnauthorized,
	constants.ErrCodeLockedPeriod:     http.StatusForbidden,
	constants.ErrCodeResolution:       http.StatusInternalServerError,
	constants.ErrCodeExternalAPI:      http.StatusBadGateway,
	constants.ErrCodeTimeout:          http.StatusBadGateway,
	constants.ErrCodeDocumentNotFound: http.StatusNotFound,
	constants.ErrCodeInternal:         http.StatusInternalServerError,
}

// HTTPStatus maps a service error onto the status code callers see.
func HTTPStatus(err error) (int, string) {
	code := services.ErrorCode(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, code
}

// respondServiceError translates errors coming out of the services layer.
// Internal errors are logged and replaced with a generic message.
func respondServiceError(w http.ResponseWriter, start time.Time, err error) {
	status, code := HTTPStatus(err)
	if code == constants.ErrCodeInternal {
		logging.Error("request failed", "error", err)
		common.RespondError(w, start, nil, code, status)
		return
	}
	common.RespondError(w, start, err, code, status)
}

func respondBadRequest(w http.ResponseWriter, start time.Time, err error) {
	common.RespondError(w, start, err, constants.ErrCodeInvalidRequest, http.StatusBadRequest)
}
