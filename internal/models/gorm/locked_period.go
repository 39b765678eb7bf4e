package gorm

import "time"

// LockedPeriodSetting holds the tenant's accounting lock. A nil CutoffDate
// or Enabled=false means nothing is locked.
type LockedPeriodSetting struct {
	ID         uint       `gorm:"column:id;primaryKey"`
	TenantID   string     `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex"`
	Enabled    bool       `gorm:"column:enabled;not null;default:false"`
	CutoffDate *time.Time `gorm:"column:cutoff_date;type:date"`
	UpdatedBy  string     `gorm:"column:updated_by;type:varchar(64)"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LockedPeriodSetting) TableName() string {
	return "locked_period_settings"
}

// LockedPeriodViolation is an append-only record of a blocked sync attempt.
type LockedPeriodViolation struct {
	ID            uint      `gorm:"column:id;primaryKey"`
	TenantID      string    `gorm:"column:tenant_id;type:varchar(64);not null;index"`
	EntityType    string    `gorm:"column:entity_type;type:varchar(32);not null"`
	EntityID      string    `gorm:"column:entity_id;type:varchar(64);not null"`
	UserID        string    `gorm:"column:user_id;type:varchar(64)"`
	Action        string    `gorm:"column:action;type:varchar(32);not null"`
	AttemptedDate time.Time `gorm:"column:attempted_date;type:date;not null"`
	CutoffDate    time.Time `gorm:"column:cutoff_date;type:date;not null"`
	Blocked       bool      `gorm:"column:blocked;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (LockedPeriodViolation) TableName() string {
	return "locked_period_violations"
}
