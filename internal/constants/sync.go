package constants

// EntityType names a synced record kind. It doubles as the mapping table key.
type EntityType string

const (
	EntityVendor   EntityType = "vendor"
	EntityCustomer EntityType = "customer"
	EntityItem     EntityType = "item"
	EntityBill     EntityType = "bill"
	EntityInvoice  EntityType = "invoice"
	EntityEstimate EntityType = "estimate"
	EntityAccount  EntityType = "account"
)

func (e EntityType) String() string { return string(e) }

// SyncStatus is the lifecycle state of a mapping row.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
	SyncStatusVoided  SyncStatus = "voided"
	SyncStatusDeleted SyncStatus = "deleted"
)

// SyncAction is recorded on every audit log row.
type SyncAction string

const (
	ActionCreate            SyncAction = "create"
	ActionUpdate            SyncAction = "update"
	ActionLinkExisting      SyncAction = "link_existing"
	ActionConflictRecovered SyncAction = "conflict_recovered"
	ActionAttachmentUpload  SyncAction = "attachment_upload"
	ActionLockedPeriod      SyncAction = "locked_period_blocked"
	ActionWebhookEcho       SyncAction = "webhook_echo_ignored"
	ActionWebhookRemote     SyncAction = "webhook_remote_change"
)

// LogStatus is the outcome recorded on an audit log row.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailure LogStatus = "failure"
	LogStatusBlocked LogStatus = "blocked"
	LogStatusIgnored LogStatus = "ignored"
)

// Remote entity names used on the accounting platform's wire.
var RemoteEntityNames = map[string]EntityType{
	"Vendor":   EntityVendor,
	"Customer": EntityCustomer,
	"Item":     EntityItem,
	"Bill":     EntityBill,
	"Invoice":  EntityInvoice,
	"Estimate": EntityEstimate,
}
