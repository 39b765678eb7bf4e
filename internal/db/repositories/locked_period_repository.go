package repositories

import (
	"context"
	"errors"
	"fmt"

	"fieldops/ledgersync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LockedPeriodRepo struct {
	db *gormlib.DB
}

func NewLockedPeriodRepo(db *gormlib.DB) *LockedPeriodRepo {
	return &LockedPeriodRepo{db: db}
}

// GetSetting returns nil when the tenant never configured a lock.
func (r *LockedPeriodRepo) GetSetting(ctx context.Context, tenantID string) (*gorm.LockedPeriodSetting, error) {
	var s gorm.LockedPeriodSetting
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&s).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load locked period setting: %w", err)
	}
	return &s, nil
}

func (r *LockedPeriodRepo) SaveSetting(ctx context.Context, s *gorm.LockedPeriodSetting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "cutoff_date", "updated_by", "updated_at"}),
		}).
		Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to save locked period setting: %w", err)
	}
	return nil
}

func (r *LockedPeriodRepo) AppendViolation(ctx context.Context, v *gorm.LockedPeriodViolation) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to record locked period violation: %w", err)
	}
	return nil
}
