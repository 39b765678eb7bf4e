package gorm

import (
	"time"

	"fieldops/ledgersync/internal/constants"
)

// EntityMapping links a local record to its counterpart on the accounting
// platform. Each entity type gets its own table with the same shape, and
// local ids are unique per tenant.
type EntityMapping struct {
	ID                uint                 `gorm:"column:id;primaryKey"`
	TenantID          string               `gorm:"column:tenant_id;type:varchar(64);not null;index:,unique,composite:tenant_local"`
	LocalID           string               `gorm:"column:local_id;type:varchar(64);not null;index:,unique,composite:tenant_local"`
	ExternalID        string               `gorm:"column:external_id;type:varchar(64);index"`
	ExternalDocNumber *string              `gorm:"column:external_doc_number;type:varchar(64)"`
	SyncStatus        constants.SyncStatus `gorm:"column:sync_status;type:varchar(16);not null;default:pending"`
	LastSyncedAt      *time.Time           `gorm:"column:last_synced_at"`
	ErrorMessage      *string              `gorm:"column:error_message;type:text"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Linked reports whether the mapping points at an external record.
func (m *EntityMapping) Linked() bool {
	return m != nil && m.ExternalID != ""
}

type VendorMapping struct{ EntityMapping }

func (VendorMapping) TableName() string { return "vendor_mappings" }

type CustomerMapping struct{ EntityMapping }

func (CustomerMapping) TableName() string { return "customer_mappings" }

type ItemMapping struct{ EntityMapping }

func (ItemMapping) TableName() string { return "item_mappings" }

type BillMapping struct{ EntityMapping }

func (BillMapping) TableName() string { return "bill_mappings" }

type InvoiceMapping struct{ EntityMapping }

func (InvoiceMapping) TableName() string { return "invoice_mappings" }

type EstimateMapping struct{ EntityMapping }

func (EstimateMapping) TableName() string { return "estimate_mappings" }

// MappingTables maps entity types to their table names.
var MappingTables = map[constants.EntityType]string{
	constants.EntityVendor:   VendorMapping{}.TableName(),
	constants.EntityCustomer: CustomerMapping{}.TableName(),
	constants.EntityItem:     ItemMapping{}.TableName(),
	constants.EntityBill:     BillMapping{}.TableName(),
	constants.EntityInvoice:  InvoiceMapping{}.TableName(),
	constants.EntityEstimate: EstimateMapping{}.TableName(),
}
