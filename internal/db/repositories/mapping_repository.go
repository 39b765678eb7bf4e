package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrMappingNotFound = errors.New("mapping not found")

// MappingRepo persists local-to-external links for every entity type.
// All entity tables share the EntityMapping shape.
type MappingRepo struct {
	db *gormlib.DB
}

func NewMappingRepo(db *gormlib.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

func (r *MappingRepo) table(ctx context.Context, entityType constants.EntityType) (*gormlib.DB, error) {
	name, ok := gorm.MappingTables[entityType]
	if !ok {
		return nil, fmt.Errorf("no mapping table for entity type %q", entityType)
	}
	return r.db.WithContext(ctx).Table(name), nil
}

// Get returns the tenant's mapping for a local record, or nil when none exists.
func (r *MappingRepo) Get(ctx context.Context, entityType constants.EntityType, tenantID, localID string) (*gorm.EntityMapping, error) {
	tx, err := r.table(ctx, entityType)
	if err != nil {
		return nil, err
	}

	var m gorm.EntityMapping
	err = tx.Where("tenant_id = ? AND local_id = ?", tenantID, localID).First(&m).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s mapping: %w", entityType, err)
	}
	return &m, nil
}

// FindByExternalID looks a mapping up from the platform side.
func (r *MappingRepo) FindByExternalID(ctx context.Context, entityType constants.EntityType, tenantID, externalID string) (*gorm.EntityMapping, error) {
	tx, err := r.table(ctx, entityType)
	if err != nil {
		return nil, err
	}

	var m gorm.EntityMapping
	err = tx.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&m).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s mapping by external id: %w", entityType, err)
	}
	return &m, nil
}

// Upsert inserts or replaces the mapping keyed by (tenant_id, local_id).
// ON CONFLICT (tenant_id, local_id) DO UPDATE
func (r *MappingRepo) Upsert(ctx context.Context, entityType constants.EntityType, m *gorm.EntityMapping) error {
	tx, err := r.table(ctx, entityType)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.SyncStatus == "" {
		m.SyncStatus = constants.SyncStatusPending
	}

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_id",
			"external_doc_number",
			"sync_status",
			"last_synced_at",
			"error_message",
			"updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s mapping: %w", entityType, err)
	}
	return nil
}

// MarkSyncing records that a remote write is about to happen. It must land
// before the write so a webhook echo arriving mid-flight is recognised.
func (r *MappingRepo) MarkSyncing(ctx context.Context, entityType constants.EntityType, tenantID, localID string, at time.Time) error {
	return r.update(ctx, entityType, tenantID, localID, map[string]interface{}{
		"sync_status":    constants.SyncStatusSyncing,
		"last_synced_at": at,
		"updated_at":     time.Now().UTC(),
	})
}

// MarkSynced stores the external identifiers and clears any previous error.
func (r *MappingRepo) MarkSynced(ctx context.Context, entityType constants.EntityType, tenantID, localID, externalID string, docNumber *string, at time.Time) error {
	return r.update(ctx, entityType, tenantID, localID, map[string]interface{}{
		"external_id":         externalID,
		"external_doc_number": docNumber,
		"sync_status":         constants.SyncStatusSynced,
		"last_synced_at":      at,
		"error_message":       nil,
		"updated_at":          time.Now().UTC(),
	})
}

func (r *MappingRepo) MarkError(ctx context.Context, entityType constants.EntityType, tenantID, localID, message string) error {
	return r.update(ctx, entityType, tenantID, localID, map[string]interface{}{
		"sync_status":   constants.SyncStatusError,
		"error_message": message,
		"updated_at":    time.Now().UTC(),
	})
}

// SetStatus is used for remote lifecycle changes such as void or delete.
func (r *MappingRepo) SetStatus(ctx context.Context, entityType constants.EntityType, tenantID, localID string, status constants.SyncStatus) error {
	return r.update(ctx, entityType, tenantID, localID, map[string]interface{}{
		"sync_status": status,
		"updated_at":  time.Now().UTC(),
	})
}

func (r *MappingRepo) update(ctx context.Context, entityType constants.EntityType, tenantID, localID string, values map[string]interface{}) error {
	tx, err := r.table(ctx, entityType)
	if err != nil {
		return err
	}

	res := tx.Where("tenant_id = ? AND local_id = ?", tenantID, localID).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s mapping: %w", entityType, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// ListByTenant returns mappings for the status view, newest first.
func (r *MappingRepo) ListByTenant(ctx context.Context, entityType constants.EntityType, tenantID string, status constants.SyncStatus, limit int) ([]gorm.EntityMapping, error) {
	tx, err := r.table(ctx, entityType)
	if err != nil {
		return nil, err
	}

	q := tx.Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("sync_status = ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []gorm.EntityMapping
	if err := q.Order("updated_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s mappings: %w", entityType, err)
	}
	return out, nil
}
