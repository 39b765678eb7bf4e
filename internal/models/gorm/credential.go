package gorm

import "time"

// AccountingCredential is the OAuth connection between one tenant and one
// accounting company (realm).
type AccountingCredential struct {
	ID                    uint       `gorm:"column:id;primaryKey"`
	TenantID              string     `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex"`
	RealmID               string     `gorm:"column:realm_id;type:varchar(64);not null;index"`
	AccessToken           string     `gorm:"column:access_token;type:text;not null"`
	RefreshToken          string     `gorm:"column:refresh_token;type:text;not null"`
	TokenType             string     `gorm:"column:token_type;type:varchar(32)"`
	ExpiresAt             time.Time  `gorm:"column:expires_at;not null"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at"`
	Active                bool       `gorm:"column:active;not null;default:true"`
	ConnectedBy           string     `gorm:"column:connected_by;type:varchar(64)"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountingCredential) TableName() string {
	return "accounting_credentials"
}
