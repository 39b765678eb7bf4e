package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	"fieldops/ledgersync/internal/models/entities"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"

	"gorm.io/datatypes"
)

// SyncTrigger identifies who asked to sync which local document.
type SyncTrigger struct {
	TenantID string
	UserID   string
	EntityID string
}

type SyncOutcome string

const (
	OutcomeCreated           SyncOutcome = "created"
	OutcomeUpdated           SyncOutcome = "updated"
	OutcomeAlreadySynced     SyncOutcome = "already_synced"
	OutcomeConflictRecovered SyncOutcome = "conflict_recovered"
	OutcomeSkipped           SyncOutcome = "skipped"
)

// SyncResult is returned on success, including no-op outcomes.
type SyncResult struct {
	EntityType        constants.EntityType `json:"entity_type"`
	LocalID           string               `json:"local_id"`
	ExternalID        string               `json:"external_id,omitempty"`
	DocNumber         string               `json:"doc_number,omitempty"`
	Outcome           SyncOutcome          `json:"outcome"`
	ConflictRecovered bool                 `json:"conflict_recovered"`
	AttachmentsSynced int                  `json:"attachments_synced"`
	AttachmentsFailed int                  `json:"attachments_failed"`
	Message           string               `json:"message,omitempty"`
}

type CredentialProvider interface {
	GetValidCredential(ctx context.Context, tenantID string) (providers.Session, error)
}

type PeriodGuard interface {
	CheckAllowed(ctx context.Context, c LockCheck) LockDecision
}

// syncDocument is one local bill, invoice or estimate being pushed.
type syncDocument interface {
	entityType() constants.EntityType
	localID() string
	txnDate() time.Time
	build(ctx context.Context, o *SyncOrchestrator, run *syncRun) error
	create(ctx context.Context, o *SyncOrchestrator, run *syncRun) (externalID, docNumber string, err error)
	loadSyncToken(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) error
	update(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) (docNumber string, err error)
}

// attachmentCarrier is implemented by documents whose files follow them.
type attachmentCarrier interface {
	attachments() []entities.Attachment
	platformEntity() string
}

// SyncOrchestrator is the only writer of document mapping status. Each
// operation is synchronous and leaves either a synced mapping or an error
// mapping plus a failure audit row.
type SyncOrchestrator struct {
	tokens      CredentialProvider
	guard       PeriodGuard
	api         AccountingAPI
	docs        DocumentSource
	mappings    MappingStore
	logs        SyncLogStore
	resolver    *EntityResolver
	lines       *LineBuilder
	attachments common.AttachmentStore
	metrics     *metrics.MetricsRegistry
	now         func() time.Time
}

func NewSyncOrchestrator(
	tokens CredentialProvider,
	guard PeriodGuard,
	api AccountingAPI,
	docs DocumentSource,
	mappings MappingStore,
	logs SyncLogStore,
	attachments common.AttachmentStore,
	m *metrics.MetricsRegistry,
) *SyncOrchestrator {
	accounts := NewAccountResolver(api)
	resolver := NewEntityResolver(api, docs, mappings, logs, accounts)

	return &SyncOrchestrator{
		tokens:      tokens,
		guard:       guard,
		api:         api,
		docs:        docs,
		mappings:    mappings,
		logs:        logs,
		resolver:    resolver,
		lines:       NewLineBuilder(resolver, accounts),
		attachments: attachments,
		metrics:     m,
		now:         time.Now,
	}
}

func (o *SyncOrchestrator) newRun(ctx context.Context, trig SyncTrigger, et constants.EntityType) (*syncRun, error) {
	session, err := o.tokens.GetValidCredential(ctx, trig.TenantID)
	if err != nil {
		return nil, err
	}
	return &syncRun{
		tenantID: trig.TenantID,
		userID:   trig.UserID,
		session:  session,
		cache:    NewAccountCache(),
		log:      logging.WithSync(trig.TenantID, string(et), trig.EntityID).With("user_id", trig.UserID),
	}, nil
}

// ============================================================================
// Create / update
// ============================================================================

func (o *SyncOrchestrator) syncCreate(ctx context.Context, trig SyncTrigger, et constants.EntityType, load func() (syncDocument, error)) (*SyncResult, error) {
	started := o.now()

	existing, err := o.mappings.Get(ctx, et, trig.TenantID, trig.EntityID)
	if err != nil {
		return nil, err
	}
	if existing.Linked() {
		if existing.SyncStatus != constants.SyncStatusError {
			o.metrics.ObserveSync(string(et), string(constants.ActionCreate), string(OutcomeAlreadySynced), started)
			return &SyncResult{
				EntityType: et,
				LocalID:    trig.EntityID,
				ExternalID: existing.ExternalID,
				DocNumber:  common.StringValue(existing.ExternalDocNumber),
				Outcome:    OutcomeAlreadySynced,
			}, nil
		}
		// The record exists remotely but the last push failed; re-push it
		// instead of creating a second copy.
		return o.syncUpdate(ctx, trig, et, load)
	}

	doc, err := load()
	if err != nil {
		if existing != nil {
			return nil, o.fail(ctx, trig, et, constants.ActionCreate, started, nil, err)
		}
		return nil, err
	}

	run, err := o.newRun(ctx, trig, et)
	if err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionCreate, started, nil, err)
	}

	if err := o.checkLocked(ctx, run, doc, constants.ActionCreate, started); err != nil {
		return nil, err
	}

	if err := doc.build(ctx, o, run); err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionCreate, started, run, err)
	}

	result := &SyncResult{EntityType: et, LocalID: trig.EntityID, Outcome: OutcomeCreated}
	action := constants.ActionCreate

	externalID, docNumber, err := doc.create(ctx, o, run)
	if err != nil {
		id, ok := "", false
		if providers.IsDuplicateDocNumber(err) {
			id, ok = providers.ConflictingID(err)
		}
		if !ok {
			return nil, o.fail(ctx, trig, et, constants.ActionCreate, started, run, err)
		}
		run.log.Infow("Document number already used remotely, linking existing record", "external_id", id)
		externalID = id
		result.ConflictRecovered = true
		result.Outcome = OutcomeConflictRecovered
		action = constants.ActionConflictRecovered
	}

	now := o.now().UTC()
	mapping := &gormModels.EntityMapping{
		TenantID:     trig.TenantID,
		LocalID:      trig.EntityID,
		ExternalID:   externalID,
		SyncStatus:   constants.SyncStatusSynced,
		LastSyncedAt: &now,
	}
	if docNumber != "" {
		mapping.ExternalDocNumber = &docNumber
	}
	if err := o.mappings.Upsert(ctx, et, mapping); err != nil {
		run.log.Errorw("Created remotely but failed to persist mapping", "external_id", externalID, "error", err)
		return nil, err
	}

	result.ExternalID = externalID
	result.DocNumber = docNumber

	if !result.ConflictRecovered {
		o.syncAttachments(ctx, run, doc, externalID, result)
	}

	o.audit(ctx, run, et, trig.EntityID, &externalID, action, constants.LogStatusSuccess, nil, map[string]interface{}{
		"doc_number":         docNumber,
		"attachments_synced": result.AttachmentsSynced,
		"attachments_failed": result.AttachmentsFailed,
	})
	o.metrics.ObserveSync(string(et), string(constants.ActionCreate), string(result.Outcome), started)
	run.log.Infow("Document synced", "external_id", externalID, "outcome", result.Outcome)
	return result, nil
}

func (o *SyncOrchestrator) syncUpdate(ctx context.Context, trig SyncTrigger, et constants.EntityType, load func() (syncDocument, error)) (*SyncResult, error) {
	started := o.now()

	existing, err := o.mappings.Get(ctx, et, trig.TenantID, trig.EntityID)
	if err != nil {
		return nil, err
	}
	if !existing.Linked() {
		o.metrics.ObserveSync(string(et), string(constants.ActionUpdate), string(OutcomeSkipped), started)
		return &SyncResult{EntityType: et, LocalID: trig.EntityID, Outcome: OutcomeSkipped, Message: "document has not been synced yet"}, nil
	}
	if existing.SyncStatus == constants.SyncStatusVoided || existing.SyncStatus == constants.SyncStatusDeleted {
		o.metrics.ObserveSync(string(et), string(constants.ActionUpdate), string(OutcomeSkipped), started)
		return &SyncResult{
			EntityType: et,
			LocalID:    trig.EntityID,
			ExternalID: existing.ExternalID,
			Outcome:    OutcomeSkipped,
			Message:    fmt.Sprintf("remote document is %s", existing.SyncStatus),
		}, nil
	}

	doc, err := load()
	if err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, nil, err)
	}

	run, err := o.newRun(ctx, trig, et)
	if err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, nil, err)
	}

	if err := o.checkLocked(ctx, run, doc, constants.ActionUpdate, started); err != nil {
		return nil, err
	}

	if err := doc.loadSyncToken(ctx, o, run, existing.ExternalID); err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, run, err)
	}
	if err := doc.build(ctx, o, run); err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, run, err)
	}

	// Must land before the remote write so the webhook for our own change
	// is recognised as an echo.
	if err := o.mappings.MarkSyncing(ctx, et, trig.TenantID, trig.EntityID, o.now().UTC()); err != nil {
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, run, fmt.Errorf("failed to mark mapping syncing: %w", err))
	}

	docNumber, err := doc.update(ctx, o, run, existing.ExternalID)
	if err != nil {
		// A stale token is terminal for this invocation.
		if providers.IsStaleObject(err) {
			run.log.Warnw("Remote record changed since its sync token was read", "external_id", existing.ExternalID)
		}
		return nil, o.fail(ctx, trig, et, constants.ActionUpdate, started, run, err)
	}

	var docPtr *string
	if docNumber != "" {
		docPtr = &docNumber
	} else {
		docPtr = existing.ExternalDocNumber
	}
	if err := o.mappings.MarkSynced(ctx, et, trig.TenantID, trig.EntityID, existing.ExternalID, docPtr, o.now().UTC()); err != nil {
		run.log.Errorw("Updated remotely but failed to mark mapping synced", "external_id", existing.ExternalID, "error", err)
		return nil, err
	}

	extID := existing.ExternalID
	o.audit(ctx, run, et, trig.EntityID, &extID, constants.ActionUpdate, constants.LogStatusSuccess, nil, map[string]interface{}{
		"doc_number": common.StringValue(docPtr),
	})
	o.metrics.ObserveSync(string(et), string(constants.ActionUpdate), string(OutcomeUpdated), started)
	run.log.Infow("Document updated", "external_id", extID)

	return &SyncResult{
		EntityType: et,
		LocalID:    trig.EntityID,
		ExternalID: extID,
		DocNumber:  common.StringValue(docPtr),
		Outcome:    OutcomeUpdated,
	}, nil
}

// ============================================================================
// Guard, failure and audit helpers
// ============================================================================

func (o *SyncOrchestrator) checkLocked(ctx context.Context, run *syncRun, doc syncDocument, action constants.SyncAction, started time.Time) error {
	decision := o.guard.CheckAllowed(ctx, LockCheck{
		TenantID:   run.tenantID,
		EntityType: doc.entityType(),
		EntityID:   doc.localID(),
		UserID:     run.userID,
		Action:     action,
		TxnDate:    doc.txnDate(),
	})
	if decision.Allowed {
		return nil
	}

	run.log.Infow("Sync blocked by locked period", "action", action, "message", decision.Message)
	msg := decision.Message
	o.audit(ctx, run, doc.entityType(), doc.localID(), nil, constants.ActionLockedPeriod, constants.LogStatusBlocked, &msg, map[string]interface{}{
		"attempted_action": action,
	})
	o.metrics.ObserveSync(string(doc.entityType()), string(action), "blocked", started)

	lockErr := &LockedPeriodError{Message: decision.Message}
	if decision.CutoffDate != nil {
		lockErr.CutoffDate = *decision.CutoffDate
	}
	return lockErr
}

// fail records a terminal failure on the mapping row and the audit log and
// returns cause unchanged.
func (o *SyncOrchestrator) fail(ctx context.Context, trig SyncTrigger, et constants.EntityType, action constants.SyncAction, started time.Time, run *syncRun, cause error) error {
	log := logging.WithSync(trig.TenantID, string(et), trig.EntityID)
	if run != nil {
		log = run.log
	}

	msg := common.TruncateUTF8(cause.Error(), 1000)

	existing, err := o.mappings.Get(ctx, et, trig.TenantID, trig.EntityID)
	switch {
	case err != nil:
		log.Errorw("Failed to load mapping while recording failure", "error", err)
	case existing == nil:
		err = o.mappings.Upsert(ctx, et, &gormModels.EntityMapping{
			TenantID:     trig.TenantID,
			LocalID:      trig.EntityID,
			SyncStatus:   constants.SyncStatusError,
			ErrorMessage: &msg,
		})
	default:
		err = o.mappings.MarkError(ctx, et, trig.TenantID, trig.EntityID, msg)
	}
	if err != nil {
		log.Errorw("Failed to record mapping error", "error", err)
	}

	var extID *string
	if existing.Linked() {
		extID = &existing.ExternalID
	}
	entry := &gormModels.SyncLogEntry{
		TenantID:     trig.TenantID,
		EntityType:   string(et),
		EntityID:     trig.EntityID,
		ExternalID:   extID,
		Action:       string(action),
		Status:       string(constants.LogStatusFailure),
		ErrorMessage: &msg,
		Details:      detailsJSON(map[string]interface{}{"error_code": ErrorCode(cause)}),
		UserID:       trig.UserID,
	}
	if err := o.logs.Append(ctx, entry); err != nil {
		log.Errorw("Failed to append failure log", "error", err)
	}

	var authErr *AuthError
	if errors.As(cause, &authErr) {
		log.Warnw("Sync failed: accounting authorization", "action", action, "error", cause)
	} else {
		log.Errorw("Sync failed", "action", action, "error", cause)
	}
	o.metrics.ObserveSync(string(et), string(action), "failure", started)
	return cause
}

func (o *SyncOrchestrator) audit(
	ctx context.Context,
	run *syncRun,
	et constants.EntityType,
	localID string,
	externalID *string,
	action constants.SyncAction,
	status constants.LogStatus,
	errMsg *string,
	details map[string]interface{},
) {
	err := o.logs.Append(ctx, &gormModels.SyncLogEntry{
		TenantID:     run.tenantID,
		EntityType:   string(et),
		EntityID:     localID,
		ExternalID:   externalID,
		Action:       string(action),
		Status:       string(status),
		ErrorMessage: errMsg,
		Details:      detailsJSON(details),
		UserID:       run.userID,
	})
	if err != nil {
		run.log.Warnw("Failed to append sync log", "action", action, "error", err)
	}
}

func detailsJSON(v map[string]interface{}) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// ============================================================================
// Attachments
// ============================================================================

// syncAttachments uploads the document's files to the new remote record.
// Failures are counted and logged but never fail the sync.
func (o *SyncOrchestrator) syncAttachments(ctx context.Context, run *syncRun, doc syncDocument, externalID string, result *SyncResult) {
	carrier, ok := doc.(attachmentCarrier)
	if !ok {
		return
	}
	files := carrier.attachments()
	if len(files) == 0 {
		return
	}
	if o.attachments == nil {
		run.log.Warnw("No attachment store configured, skipping uploads", "count", len(files))
		result.AttachmentsFailed = len(files)
		return
	}

	for _, f := range files {
		data, err := o.attachments.Read(ctx, f.StoragePath)
		if err == nil {
			_, err = o.api.UploadAttachment(ctx, run.session, providers.AttachmentUpload{
				EntityType:  carrier.platformEntity(),
				EntityID:    externalID,
				FileName:    f.FileName,
				ContentType: f.ContentType,
				Content:     data,
			})
		}
		if err != nil {
			result.AttachmentsFailed++
			o.metrics.AttachmentUpload("failure")
			run.log.Warnw("Attachment upload failed", "attachment_id", f.ID, "file_name", f.FileName, "error", err)
			continue
		}
		result.AttachmentsSynced++
		o.metrics.AttachmentUpload("success")
	}

	status := constants.LogStatusSuccess
	if result.AttachmentsFailed > 0 {
		status = constants.LogStatusFailure
	}
	o.audit(ctx, run, doc.entityType(), doc.localID(), &externalID, constants.ActionAttachmentUpload, status, nil, map[string]interface{}{
		"synced": result.AttachmentsSynced,
		"failed": result.AttachmentsFailed,
	})
}
