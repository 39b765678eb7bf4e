package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/providers"
	"fieldops/ledgersync/internal/services"
)

const maxWebhookBody = 1 << 20

// AccountingWebhook handles POST /webhooks/accounting. Authentication is the
// payload signature, not a caller identity.
func (h *Handlers) AccountingWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			respondBadRequest(w, start, errors.New("webhook body unreadable or too large"))
			return
		}

		summary, err := h.deps.Services.Webhooks.Handle(r.Context(), body, r.Header.Get(providers.WebhookSignatureHeader))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrWebhookSignature):
			common.RespondError(w, start, err, constants.ErrCodeBadSignature, http.StatusUnauthorized)
			return
		case errors.Is(err, services.ErrWebhookPayload):
			respondBadRequest(w, start, err)
			return
		default:
			respondServiceError(w, start, err)
			return
		}

		common.RespondSuccess(w, start, "processed", summary)
	}
}
