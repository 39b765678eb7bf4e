package gorm

import (
	"time"

	"gorm.io/datatypes"
)

// SyncLogEntry is one append-only audit row. Rows are never updated.
type SyncLogEntry struct {
	ID           uint           `gorm:"column:id;primaryKey"`
	TenantID     string         `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_sync_logs_entity,priority:1"`
	EntityType   string         `gorm:"column:entity_type;type:varchar(32);not null;index:idx_sync_logs_entity,priority:2"`
	EntityID     string         `gorm:"column:entity_id;type:varchar(64);not null;index:idx_sync_logs_entity,priority:3"`
	ExternalID   *string        `gorm:"column:external_id;type:varchar(64)"`
	Action       string         `gorm:"column:action;type:varchar(32);not null"`
	Status       string         `gorm:"column:status;type:varchar(16);not null"`
	ErrorMessage *string        `gorm:"column:error_message;type:text"`
	Details      datatypes.JSON `gorm:"column:details"`
	UserID       string         `gorm:"column:user_id;type:varchar(64)"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (SyncLogEntry) TableName() string {
	return "sync_logs"
}

// AllModels lists every table the sync engine owns, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&AccountingCredential{},
		&LockedPeriodSetting{},
		&LockedPeriodViolation{},
		&VendorMapping{},
		&CustomerMapping{},
		&ItemMapping{},
		&BillMapping{},
		&InvoiceMapping{},
		&EstimateMapping{},
		&SyncLogEntry{},
	}
}
