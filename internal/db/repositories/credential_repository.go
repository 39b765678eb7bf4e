package repositories

import (
	"context"
	"errors"
	"fmt"

	"fieldops/ledgersync/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepo struct {
	db *gormlib.DB
}

func NewCredentialRepo(db *gormlib.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// GetActive returns the tenant's live connection, or nil.
func (r *CredentialRepo) GetActive(ctx context.Context, tenantID string) (*gorm.AccountingCredential, error) {
	var cred gorm.AccountingCredential
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// FindByRealm resolves the tenant behind an inbound webhook.
func (r *CredentialRepo) FindByRealm(ctx context.Context, realmID string) (*gorm.AccountingCredential, error) {
	var cred gorm.AccountingCredential
	err := r.db.WithContext(ctx).
		Where("realm_id = ? AND active = ?", realmID, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credential by realm: %w", err)
	}
	return &cred, nil
}

// Save upserts the tenant's connection.
// ON CONFLICT (tenant_id) DO UPDATE
func (r *CredentialRepo) Save(ctx context.Context, cred *gorm.AccountingCredential) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"realm_id",
				"access_token",
				"refresh_token",
				"token_type",
				"expires_at",
				"refresh_token_expires_at",
				"active",
				"connected_by",
				"updated_at",
			}),
		}).
		Create(cred).Error
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Deactivate wipes the tokens and marks the connection inactive.
func (r *CredentialRepo) Deactivate(ctx context.Context, tenantID string) error {
	err := r.db.WithContext(ctx).
		Model(&gorm.AccountingCredential{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"active":        false,
			"access_token":  "",
			"refresh_token": "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate credential: %w", err)
	}
	return nil
}
