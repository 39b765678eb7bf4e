package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/dtos"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/services"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

type syncFunc func(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)

// EntityPaths maps URL segments onto entity types.
var EntityPaths = map[string]constants.EntityType{
	"bills":     constants.EntityBill,
	"invoices":  constants.EntityInvoice,
	"estimates": constants.EntityEstimate,
	"vendors":   constants.EntityVendor,
	"customers": constants.EntityCustomer,
	"items":     constants.EntityItem,
}

var (
	createOps = map[constants.EntityType]func(DocumentSyncer) syncFunc{
		constants.EntityBill:     func(s DocumentSyncer) syncFunc { return s.CreateBill },
		constants.EntityInvoice:  func(s DocumentSyncer) syncFunc { return s.CreateInvoice },
		constants.EntityEstimate: func(s DocumentSyncer) syncFunc { return s.CreateEstimate },
	}
	updateOps = map[constants.EntityType]func(DocumentSyncer) syncFunc{
		constants.EntityBill:     func(s DocumentSyncer) syncFunc { return s.UpdateBill },
		constants.EntityInvoice:  func(s DocumentSyncer) syncFunc { return s.UpdateInvoice },
		constants.EntityEstimate: func(s DocumentSyncer) syncFunc { return s.UpdateEstimate },
	}
)

// SyncWriteRole is the minimum role allowed to push a document type.
// Estimates are open to members; bills and invoices touch the ledger.
func SyncWriteRole(r *http.Request) constants.Role {
	et, _ := entityTypeParam(r)
	if et == constants.EntityEstimate {
		return constants.RoleMember
	}
	return constants.RoleManager
}

func (h *Handlers) runSync(ops map[constants.EntityType]func(DocumentSyncer) syncFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		et, _ := entityTypeParam(r)
		pick, ok := ops[et]
		if !ok {
			common.RespondError(w, start, fmt.Errorf("documents of type %q cannot be synced", chi.URLParam(r, "entityType")), constants.ErrCodeInvalidRequest, http.StatusNotFound)
			return
		}

		entityID := strings.TrimSpace(chi.URLParam(r, "entityID"))
		if entityID == "" {
			respondBadRequest(w, start, errors.New("entity id is required"))
			return
		}

		result, err := pick(h.deps.Services.Sync)(r.Context(), services.SyncTrigger{
			TenantID: claims.TenantID(),
			UserID:   claims.UserID(),
			EntityID: entityID,
		})
		if err != nil {
			respondServiceError(w, start, err)
			return
		}

		status := http.StatusOK
		if result.Outcome == services.OutcomeCreated {
			status = http.StatusCreated
		}
		common.RespondSuccess(w, start, string(result.Outcome), result, status)
	}
}

// SyncCreate handles POST /api/v1/sync/{entityType}/{entityID}
func (h *Handlers) SyncCreate() http.HandlerFunc {
	return h.runSync(createOps)
}

// SyncUpdate handles PUT /api/v1/sync/{entityType}/{entityID}
func (h *Handlers) SyncUpdate() http.HandlerFunc {
	return h.runSync(updateOps)
}

func entityTypeParam(r *http.Request) (constants.EntityType, bool) {
	et, ok := EntityPaths[strings.ToLower(chi.URLParam(r, "entityType"))]
	return et, ok
}

func toMappingResponse(et constants.EntityType, m *gormModels.EntityMapping) dtos.MappingResponse {
	return dtos.MappingResponse{
		EntityType:        string(et),
		LocalID:           m.LocalID,
		ExternalID:        m.ExternalID,
		ExternalDocNumber: common.StringValue(m.ExternalDocNumber),
		SyncStatus:        string(m.SyncStatus),
		LastSyncedAt:      m.LastSyncedAt,
		ErrorMessage:      common.StringValue(m.ErrorMessage),
		UpdatedAt:         m.UpdatedAt,
	}
}

// GetMapping handles GET /api/v1/sync/{entityType}/{entityID}
func (h *Handlers) GetMapping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		et, ok := entityTypeParam(r)
		if !ok {
			respondBadRequest(w, start, fmt.Errorf("unknown entity type %q", chi.URLParam(r, "entityType")))
			return
		}
		entityID := chi.URLParam(r, "entityID")

		m, err := h.deps.Repo.Mappings.Get(r.Context(), et, claims.TenantID(), entityID)
		if err != nil {
			respondServiceError(w, start, err)
			return
		}
		if m == nil {
			common.RespondError(w, start, errors.New("no sync record for this entity"), constants.ErrCodeDocumentNotFound, http.StatusNotFound)
			return
		}

		common.RespondSuccess(w, start, "mapping", toMappingResponse(et, m))
	}
}

// ListMappings handles GET /api/v1/sync/{entityType}?status=error&limit=50
func (h *Handlers) ListMappings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		et, ok := entityTypeParam(r)
		if !ok {
			respondBadRequest(w, start, fmt.Errorf("unknown entity type %q", chi.URLParam(r, "entityType")))
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			respondBadRequest(w, start, err)
			return
		}
		status := constants.SyncStatus(r.URL.Query().Get("status"))

		rows, err := h.deps.Repo.Mappings.ListByTenant(r.Context(), et, claims.TenantID(), status, limit)
		if err != nil {
			respondServiceError(w, start, err)
			return
		}

		out := make([]dtos.MappingResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toMappingResponse(et, &rows[i]))
		}
		common.RespondSuccess(w, start, "mappings", out)
	}
}

// GetSyncLogs handles GET /api/v1/sync/{entityType}/{entityID}/logs
func (h *Handlers) GetSyncLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		claims := requireClaims(w, r, start)
		if claims == nil {
			return
		}

		et, ok := entityTypeParam(r)
		if !ok {
			respondBadRequest(w, start, fmt.Errorf("unknown entity type %q", chi.URLParam(r, "entityType")))
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			respondBadRequest(w, start, err)
			return
		}
		entityID := chi.URLParam(r, "entityID")

		rows, err := h.deps.Repo.Logs.ListForEntity(r.Context(), claims.TenantID(), string(et), entityID, limit)
		if err != nil {
			respondServiceError(w, start, err)
			return
		}

		resp := dtos.SyncLogListResponse{
			EntityType: string(et),
			LocalID:    entityID,
			Entries:    make([]dtos.SyncLogResponse, 0, len(rows)),
		}
		for _, row := range rows {
			resp.Entries = append(resp.Entries, toSyncLogResponse(row))
		}
		common.RespondSuccess(w, start, "sync logs", resp)
	}
}

func toSyncLogResponse(row gormModels.SyncLogEntry) dtos.SyncLogResponse {
	out := dtos.SyncLogResponse{
		ID:           row.ID,
		Action:       row.Action,
		Status:       row.Status,
		ExternalID:   common.StringValue(row.ExternalID),
		ErrorMessage: common.StringValue(row.ErrorMessage),
		UserID:       row.UserID,
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(row.Details, &details); err == nil {
			out.Details = details
		}
	}
	return out
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLogLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if n > maxLogLimit {
		n = maxLogLimit
	}
	return n, nil
}
