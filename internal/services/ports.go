package services

import (
	"context"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"
)

// AccountingAPI is the subset of the platform client the sync engine uses.
type AccountingAPI interface {
	QueryVendors(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Vendor, error)
	QueryCustomers(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Customer, error)
	QueryItems(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Item, error)
	QueryAccounts(ctx context.Context, s providers.Session, q providers.AccountQuery) ([]providers.Account, error)

	CreateVendor(ctx context.Context, s providers.Session, v providers.Vendor) (*providers.Vendor, error)
	CreateCustomer(ctx context.Context, s providers.Session, c providers.Customer) (*providers.Customer, error)
	CreateItem(ctx context.Context, s providers.Session, it providers.Item) (*providers.Item, error)

	CreateBill(ctx context.Context, s providers.Session, b providers.Bill) (*providers.Bill, error)
	GetBill(ctx context.Context, s providers.Session, id string) (*providers.Bill, error)
	UpdateBill(ctx context.Context, s providers.Session, b providers.Bill) (*providers.Bill, error)

	CreateInvoice(ctx context.Context, s providers.Session, inv providers.Invoice) (*providers.Invoice, error)
	GetInvoice(ctx context.Context, s providers.Session, id string) (*providers.Invoice, error)
	UpdateInvoice(ctx context.Context, s providers.Session, inv providers.Invoice) (*providers.Invoice, error)

	CreateEstimate(ctx context.Context, s providers.Session, est providers.Estimate) (*providers.Estimate, error)
	GetEstimate(ctx context.Context, s providers.Session, id string) (*providers.Estimate, error)
	UpdateEstimate(ctx context.Context, s providers.Session, est providers.Estimate) (*providers.Estimate, error)

	UploadAttachment(ctx context.Context, s providers.Session, a providers.AttachmentUpload) (*providers.Attachable, error)
}

var _ AccountingAPI = (*providers.AccountingProvider)(nil)

// DocumentSource reads the local application's records. Missing records
// come back as nil with no error.
type DocumentSource interface {
	GetVendor(ctx context.Context, tenantID, id string) (*entities.Vendor, error)
	GetCustomer(ctx context.Context, tenantID, id string) (*entities.Customer, error)
	GetServiceItem(ctx context.Context, tenantID, id string) (*entities.ServiceItem, error)
	GetBill(ctx context.Context, tenantID, id string) (*entities.Bill, error)
	GetInvoice(ctx context.Context, tenantID, id string) (*entities.Invoice, error)
	GetEstimate(ctx context.Context, tenantID, id string) (*entities.Estimate, error)
}

// MappingStore keys every mapping by tenant and local id.
type MappingStore interface {
	Get(ctx context.Context, entityType constants.EntityType, tenantID, localID string) (*gormModels.EntityMapping, error)
	FindByExternalID(ctx context.Context, entityType constants.EntityType, tenantID, externalID string) (*gormModels.EntityMapping, error)
	Upsert(ctx context.Context, entityType constants.EntityType, m *gormModels.EntityMapping) error
	MarkSyncing(ctx context.Context, entityType constants.EntityType, tenantID, localID string, at time.Time) error
	MarkSynced(ctx context.Context, entityType constants.EntityType, tenantID, localID, externalID string, docNumber *string, at time.Time) error
	MarkError(ctx context.Context, entityType constants.EntityType, tenantID, localID, message string) error
	SetStatus(ctx context.Context, entityType constants.EntityType, tenantID, localID string, status constants.SyncStatus) error
}

type SyncLogStore interface {
	Append(ctx context.Context, entry *gormModels.SyncLogEntry) error
}
