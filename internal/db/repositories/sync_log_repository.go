package repositories

import (
	"context"
	"fmt"

	"fieldops/ledgersync/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// SyncLogRepo is the append-only audit trail.
type SyncLogRepo struct {
	db *gormlib.DB
}

func NewSyncLogRepo(db *gormlib.DB) *SyncLogRepo {
	return &SyncLogRepo{db: db}
}

func (r *SyncLogRepo) Append(ctx context.Context, entry *gorm.SyncLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

// ListForEntity returns the newest entries first.
func (r *SyncLogRepo) ListForEntity(ctx context.Context, tenantID, entityType, entityID string, limit int) ([]gorm.SyncLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []gorm.SyncLogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return entries, nil
}
