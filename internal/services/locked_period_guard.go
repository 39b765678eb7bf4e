package services

import (
	"context"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	gormModels "fieldops/ledgersync/internal/models/gorm"
)

type LockedPeriodStore interface {
	GetSetting(ctx context.Context, tenantID string) (*gormModels.LockedPeriodSetting, error)
	AppendViolation(ctx context.Context, v *gormModels.LockedPeriodViolation) error
}

type LockCheck struct {
	TenantID   string
	EntityType constants.EntityType
	EntityID   string
	UserID     string
	Action     constants.SyncAction
	TxnDate    time.Time
}

type LockDecision struct {
	Allowed    bool
	Message    string
	CutoffDate *time.Time
}

// LockedPeriodGuard blocks syncs of documents dated on or before the
// tenant's cutoff. A failure to read the setting allows the sync.
type LockedPeriodGuard struct {
	store   LockedPeriodStore
	metrics *metrics.MetricsRegistry
}

func NewLockedPeriodGuard(store LockedPeriodStore, m *metrics.MetricsRegistry) *LockedPeriodGuard {
	return &LockedPeriodGuard{store: store, metrics: m}
}

// midday pins a calendar date to 12:00 UTC so the comparison cannot shift a
// day across time zones.
func midday(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func (g *LockedPeriodGuard) CheckAllowed(ctx context.Context, c LockCheck) LockDecision {
	setting, err := g.store.GetSetting(ctx, c.TenantID)
	if err != nil {
		logging.Warn("Locked period lookup failed, allowing sync",
			"tenant_id", c.TenantID, "entity_type", c.EntityType, "entity_id", c.EntityID, "error", err)
		return LockDecision{Allowed: true}
	}
	if setting == nil || !setting.Enabled || setting.CutoffDate == nil {
		return LockDecision{Allowed: true}
	}

	// Without a date the platform stamps the transaction with today.
	if c.TxnDate.IsZero() {
		return LockDecision{Allowed: true}
	}

	cutoff := midday(*setting.CutoffDate)
	txn := midday(c.TxnDate)
	if txn.After(cutoff) {
		return LockDecision{Allowed: true}
	}

	msg := fmt.Sprintf("%s dated %s is in a locked period (books closed through %s)",
		c.EntityType, common.DateOnly(txn), common.DateOnly(cutoff))

	violation := &gormModels.LockedPeriodViolation{
		TenantID:      c.TenantID,
		EntityType:    string(c.EntityType),
		EntityID:      c.EntityID,
		UserID:        c.UserID,
		Action:        string(c.Action),
		AttemptedDate: txn,
		CutoffDate:    cutoff,
		Blocked:       true,
	}
	if err := g.store.AppendViolation(ctx, violation); err != nil {
		logging.Error("Failed to record locked period violation",
			"tenant_id", c.TenantID, "entity_id", c.EntityID, "error", err)
	}

	g.metrics.LockedPeriodDenied(string(c.EntityType))
	return LockDecision{Allowed: false, Message: msg, CutoffDate: &cutoff}
}
