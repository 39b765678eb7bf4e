package api

import (
	"context"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/config"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/db/repositories"
	"fieldops/ledgersync/internal/metrics"
	"fieldops/ledgersync/internal/models/entities"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"
	"fieldops/ledgersync/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DocumentSyncer pushes local documents to the accounting platform.
type DocumentSyncer interface {
	CreateBill(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
	UpdateBill(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
	CreateInvoice(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
	UpdateInvoice(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
	CreateEstimate(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
	UpdateEstimate(ctx context.Context, trig services.SyncTrigger) (*services.SyncResult, error)
}

type ConnectionManager interface {
	BeginConnect(ctx context.Context, tenantID, userID string) (string, error)
	CompleteConnect(ctx context.Context, state, code, realmID string) (*gormModels.AccountingCredential, error)
	Disconnect(ctx context.Context, tenantID string) error
	Connection(ctx context.Context, tenantID string) (*gormModels.AccountingCredential, error)
}

type WebhookProcessor interface {
	Handle(ctx context.Context, body []byte, signature string) (*services.WebhookSummary, error)
}

type MappingReader interface {
	Get(ctx context.Context, entityType constants.EntityType, tenantID, localID string) (*gormModels.EntityMapping, error)
	ListByTenant(ctx context.Context, entityType constants.EntityType, tenantID string, status constants.SyncStatus, limit int) ([]gormModels.EntityMapping, error)
}

type SyncLogReader interface {
	ListForEntity(ctx context.Context, tenantID, entityType, entityID string, limit int) ([]gormModels.SyncLogEntry, error)
}

type LockedPeriodSettings interface {
	GetSetting(ctx context.Context, tenantID string) (*gormModels.LockedPeriodSetting, error)
	SaveSetting(ctx context.Context, s *gormModels.LockedPeriodSetting) error
}

type APIKeyReader interface {
	GetActive(ctx context.Context, key string) (*entities.ApiKey, error)
}

type Repositories struct {
	Mappings     MappingReader
	Logs         SyncLogReader
	LockedPeriod LockedPeriodSettings
	Keys         APIKeyReader
}

type Services struct {
	Sync        DocumentSyncer
	Connections ConnectionManager
	Webhooks    WebhookProcessor
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Config   *config.Config
}

// InitDependencies wires repositories, the platform client and the sync
// services.
func InitDependencies(cfg *config.Config, sqlDB *sqlx.DB, ormDB *gorm.DB, rdb *redis.Client, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	mappingRepo := repositories.NewMappingRepo(ormDB)
	logRepo := repositories.NewSyncLogRepo(ormDB)
	credRepo := repositories.NewCredentialRepo(ormDB)
	lockRepo := repositories.NewLockedPeriodRepo(ormDB)
	docRepo := repositories.NewDocumentRepo(sqlDB)
	keysRepo := repositories.NewApiKeysRepo(sqlDB)

	attachments, err := newAttachmentStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	acct := cfg.Accounting
	platform := providers.NewAccountingProvider(acct.APIBaseURL, acct.MinorVersion, acct.CallTimeout, acct.RequestsPerMinute, metricsReg)
	platform.Debug = acct.DebugHTTP
	oauth := providers.NewOAuthClient(acct.ClientID, acct.ClientSecret, acct.RedirectURL, acct.AuthURL, acct.TokenURL, acct.Scopes, acct.CallTimeout)

	locker := common.NewRedisLocker(rdb)
	states := common.NewOAuthStateService([]byte(cfg.Auth.JWTSecret), rdb)

	tokens := services.NewTokenManager(credRepo, oauth, locker, states, metricsReg)
	guard := services.NewLockedPeriodGuard(lockRepo, metricsReg)
	orchestrator := services.NewSyncOrchestrator(tokens, guard, platform, docRepo, mappingRepo, logRepo, attachments, metricsReg)
	webhooks := services.NewWebhookService(acct.WebhookVerifierToken, acct.EchoWindow, credRepo, mappingRepo, logRepo, metricsReg)

	return &Dependencies{
		Repo: &Repositories{
			Mappings:     mappingRepo,
			Logs:         logRepo,
			LockedPeriod: lockRepo,
			Keys:         keysRepo,
		},
		Services: &Services{
			Sync:        orchestrator,
			Connections: tokens,
			Webhooks:    webhooks,
		},
		Config: cfg,
	}, nil
}

func newAttachmentStore(cfg config.StorageConfig) (common.AttachmentStore, error) {
	maxBytes := int64(cfg.MaxUploadMBytes) << 20
	switch cfg.Backend {
	case "gcs":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return common.NewGCSAttachmentStore(ctx, cfg.GCSBucket, cfg.GCSCredentials, maxBytes)
	case "local", "":
		return common.NewLocalAttachmentStore(cfg.LocalRoot, maxBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
