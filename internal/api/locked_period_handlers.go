package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/models/dtos"
	gormModels "fieldops/ledgersync/internal/models/gorm"
)

const cutoffLayout = "2006-01-02"

// GetLockedPeriod handles GET /api/v1/accounting/locked-period
func (h *Handlers) GetLockedPeriod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		setting, err := h.deps.Repo.LockedPeriod.GetSetting(r.Context(), claims.TenantID())
		if err != nil {
			respondServiceError(w, start, err)
			return
		}
		common.RespondSuccess(w, start, "locked period", toLockedPeriodResponse(setting))
	}
}

// PutLockedPeriod handles PUT /api/v1/accounting/locked-period
func (h *Handlers) PutLockedPeriod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		var req dtos.LockedPeriodRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			respondBadRequest(w, start, fmt.Errorf("invalid request body: %w", err))
			return
		}

		setting := &gormModels.LockedPeriodSetting{
			TenantID:  claims.TenantID(),
			Enabled:   req.Enabled,
			UpdatedBy: claims.UserID(),
		}
		if raw := strings.TrimSpace(req.CutoffDate); raw != "" {
			cutoff, err := time.Parse(cutoffLayout, raw)
			if err != nil {
				respondBadRequest(w, start, fmt.Errorf("cutoff_date must be YYYY-MM-DD, got %q", raw))
				return
			}
			setting.CutoffDate = &cutoff
		}
		if setting.Enabled && setting.CutoffDate == nil {
			respondBadRequest(w, start, errors.New("cutoff_date is required when the lock is enabled"))
			return
		}
		setting.UpdatedAt = h.now().UTC()

		if err := h.deps.Repo.LockedPeriod.SaveSetting(r.Context(), setting); err != nil {
			respondServiceError(w, start, err)
			return
		}
		common.RespondSuccess(w, start, "locked period saved", toLockedPeriodResponse(setting))
	}
}

func toLockedPeriodResponse(s *gormModels.LockedPeriodSetting) dtos.LockedPeriodResponse {
	if s == nil {
		return dtos.LockedPeriodResponse{}
	}
	resp := dtos.LockedPeriodResponse{
		Enabled:   s.Enabled,
		UpdatedBy: s.UpdatedBy,
		UpdatedAt: s.UpdatedAt,
	}
	if s.CutoffDate != nil {
		resp.CutoffDate = common.DateOnly(*s.CutoffDate)
	}
	return resp
}
