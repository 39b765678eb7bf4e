package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"

	"go.uber.org/zap"
)

var (
	ErrWebhookSignature = errors.New("webhook signature invalid")
	ErrWebhookPayload   = errors.New("webhook payload malformed")
)

// RealmLookup maps a platform company id back to the tenant connected to it.
type RealmLookup interface {
	FindByRealm(ctx context.Context, realmID string) (*gormModels.AccountingCredential, error)
}

// WebhookSummary counts how each entity change in a notification was handled.
type WebhookSummary struct {
	Received     int `json:"received"`
	EchoIgnored  int `json:"echo_ignored"`
	RemoteChange int `json:"remote_change"`
	Unmapped     int `json:"unmapped"`
}

// WebhookService classifies platform change notifications. A change that
// lands within the echo window of our own last push is our own write coming
// back and is ignored; anything else is a change made on the platform.
type WebhookService struct {
	verifierToken string
	echoWindow    time.Duration
	realms        RealmLookup
	mappings      MappingStore
	logs          SyncLogStore
	metrics       *metrics.MetricsRegistry
}

func NewWebhookService(verifierToken string, echoWindow time.Duration, realms RealmLookup, mappings MappingStore, logs SyncLogStore, m *metrics.MetricsRegistry) *WebhookService {
	return &WebhookService{
		verifierToken: verifierToken,
		echoWindow:    echoWindow,
		realms:        realms,
		mappings:      mappings,
		logs:          logs,
		metrics:       m,
	}
}

// IsEcho reports whether a remote change at lastUpdated is the echo of a push
// recorded at lastSynced.
func IsEcho(lastSynced *time.Time, lastUpdated time.Time, window time.Duration) bool {
	if lastSynced == nil {
		return false
	}
	return !lastUpdated.After(lastSynced.Add(window))
}

func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string) (*WebhookSummary, error) {
	if !providers.VerifyWebhookSignature(s.verifierToken, body, signature) {
		return nil, ErrWebhookSignature
	}

	var payload providers.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
	}

	summary := &WebhookSummary{}
	for _, n := range payload.EventNotifications {
		cred, err := s.realms.FindByRealm(ctx, n.RealmID)
		if err != nil {
			return summary, err
		}
		if cred == nil {
			logging.Warn("Webhook for unknown realm", "realm_id", n.RealmID)
			summary.Received += len(n.DataChangeEvent.Entities)
			summary.Unmapped += len(n.DataChangeEvent.Entities)
			continue
		}

		for _, ch := range n.DataChangeEvent.Entities {
			summary.Received++
			if err := s.classify(ctx, cred.TenantID, ch, summary); err != nil {
				return summary, err
			}
		}
	}
	return summary, nil
}

func (s *WebhookService) classify(ctx context.Context, tenantID string, ch providers.ChangedEntity, summary *WebhookSummary) error {
	et, ok := constants.RemoteEntityNames[ch.Name]
	if !ok {
		summary.Unmapped++
		return nil
	}

	mapping, err := s.mappings.FindByExternalID(ctx, et, tenantID, ch.ID)
	if err != nil {
		return err
	}
	if mapping == nil {
		summary.Unmapped++
		s.metrics.WebhookEvent(string(et), "unmapped")
		return nil
	}

	log := logging.WithSync(tenantID, string(et), mapping.LocalID).With("external_id", ch.ID, "operation", ch.Operation)
	details := map[string]interface{}{
		"operation":    ch.Operation,
		"last_updated": ch.LastUpdated,
	}
	extID := ch.ID

	// The engine never voids or deletes, so only create and update can echo.
	lifecycle := ch.Operation == providers.OperationDelete || ch.Operation == providers.OperationVoid
	if !lifecycle && IsEcho(mapping.LastSyncedAt, ch.LastUpdated, s.echoWindow) {
		summary.EchoIgnored++
		s.metrics.WebhookEvent(string(et), "echo")
		log.Debugw("Ignoring webhook echo of our own write")
		s.append(ctx, log, tenantID, et, mapping.LocalID, &extID, constants.ActionWebhookEcho, constants.LogStatusIgnored, details)
		return nil
	}

	summary.RemoteChange++
	s.metrics.WebhookEvent(string(et), "remote")
	log.Infow("Remote change to synced record")

	switch ch.Operation {
	case providers.OperationDelete:
		err = s.mappings.SetStatus(ctx, et, mapping.TenantID, mapping.LocalID, constants.SyncStatusDeleted)
	case providers.OperationVoid:
		err = s.mappings.SetStatus(ctx, et, mapping.TenantID, mapping.LocalID, constants.SyncStatusVoided)
	}
	if err != nil {
		return err
	}

	s.append(ctx, log, tenantID, et, mapping.LocalID, &extID, constants.ActionWebhookRemote, constants.LogStatusSuccess, details)
	return nil
}

func (s *WebhookService) append(
	ctx context.Context,
	log *zap.SugaredLogger,
	tenantID string,
	et constants.EntityType,
	localID string,
	externalID *string,
	action constants.SyncAction,
	status constants.LogStatus,
	details map[string]interface{},
) {
	err := s.logs.Append(ctx, &gormModels.SyncLogEntry{
		TenantID:   tenantID,
		EntityType: string(et),
		EntityID:   localID,
		ExternalID: externalID,
		Action:     string(action),
		Status:     string(status),
		Details:    detailsJSON(details),
		UserID:     "webhook",
	})
	if err != nil {
		log.Warnw("Failed to append webhook log", "error", err)
	}
}
