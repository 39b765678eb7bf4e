package entities

import (
	"time"

	"fieldops/ledgersync/internal/constants"
)

// ApiKey is a machine credential scoped to one tenant.
type ApiKey struct {
	ID        string         `db:"id"`
	TenantID  string         `db:"tenant_id"`
	UserID    string         `db:"user_id"`
	Role      constants.Role `db:"role"`
	Label     *string        `db:"label"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
}
