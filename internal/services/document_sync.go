package services

import (
	"context"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"
	"fieldops/ledgersync/internal/providers"
)

func dateString(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return common.DateOnly(*t)
}

func noLines(et constants.EntityType, localID string) error {
	return &ResolutionError{EntityType: et, LocalID: localID, Message: "document has no lines with a non-zero amount"}
}

// ============================================================================
// Bills
// ============================================================================

type billDocument struct {
	bill    *entities.Bill
	payload providers.Bill
}

func (d *billDocument) entityType() constants.EntityType { return constants.EntityBill }
func (d *billDocument) localID() string                  { return d.bill.ID }
func (d *billDocument) txnDate() time.Time               { return d.bill.TxnDate }
func (d *billDocument) attachments() []entities.Attachment {
	return d.bill.Attachments
}
func (d *billDocument) platformEntity() string { return "Bill" }

func (d *billDocument) build(ctx context.Context, o *SyncOrchestrator, run *syncRun) error {
	vendorID, err := o.resolver.ResolveVendor(ctx, run, d.bill.VendorID)
	if err != nil {
		return err
	}

	bc := BillabilityContext{PurchaseOrderID: d.bill.PurchaseOrderID}
	if d.bill.CustomerID != nil && *d.bill.CustomerID != "" && IsBillable(bc, d.bill.Lines) {
		customerID, err := o.resolver.ResolveCustomer(ctx, run, *d.bill.CustomerID)
		if err != nil {
			return err
		}
		bc.CustomerRef = &providers.Ref{Value: customerID}
	}

	lines, err := o.lines.BuildBillLines(ctx, run, d.bill.Lines, bc)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return noLines(constants.EntityBill, d.bill.ID)
	}

	d.payload.VendorRef = providers.Ref{Value: vendorID}
	d.payload.DocNumber = common.StringValue(d.bill.BillNumber)
	d.payload.TxnDate = dateString(&d.bill.TxnDate)
	d.payload.DueDate = dateString(d.bill.DueDate)
	d.payload.PrivateNote = common.StringValue(d.bill.Memo)
	d.payload.Line = lines
	return nil
}

func (d *billDocument) create(ctx context.Context, o *SyncOrchestrator, run *syncRun) (string, string, error) {
	created, err := o.api.CreateBill(ctx, run.session, d.payload)
	if err != nil {
		return "", "", err
	}
	return created.ID, created.DocNumber, nil
}

func (d *billDocument) loadSyncToken(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) error {
	current, err := o.api.GetBill(ctx, run.session, externalID)
	if err != nil {
		return err
	}
	d.payload.ID = externalID
	d.payload.SyncToken = current.SyncToken
	return nil
}

func (d *billDocument) update(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) (string, error) {
	d.payload.ID = externalID
	updated, err := o.api.UpdateBill(ctx, run.session, d.payload)
	if err != nil {
		return "", err
	}
	return updated.DocNumber, nil
}

func (o *SyncOrchestrator) loadBill(ctx context.Context, trig SyncTrigger) func() (syncDocument, error) {
	return func() (syncDocument, error) {
		bill, err := o.docs.GetBill(ctx, trig.TenantID, trig.EntityID)
		if err != nil {
			return nil, err
		}
		if bill == nil {
			return nil, ErrDocumentNotFound
		}
		return &billDocument{bill: bill}, nil
	}
}

// CreateBill pushes a local bill to the platform. Calling it again for an
// already synced bill returns the existing link.
func (o *SyncOrchestrator) CreateBill(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncCreate(ctx, trig, constants.EntityBill, o.loadBill(ctx, trig))
}

// UpdateBill re-pushes a synced bill. Unsynced, voided and deleted bills are
// skipped without error.
func (o *SyncOrchestrator) UpdateBill(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncUpdate(ctx, trig, constants.EntityBill, o.loadBill(ctx, trig))
}

// ============================================================================
// Invoices
// ============================================================================

type invoiceDocument struct {
	invoice *entities.Invoice
	payload providers.Invoice
}

func (d *invoiceDocument) entityType() constants.EntityType { return constants.EntityInvoice }
func (d *invoiceDocument) localID() string                  { return d.invoice.ID }
func (d *invoiceDocument) txnDate() time.Time               { return d.invoice.TxnDate }

func (d *invoiceDocument) build(ctx context.Context, o *SyncOrchestrator, run *syncRun) error {
	customerID, err := o.resolver.ResolveCustomer(ctx, run, d.invoice.CustomerID)
	if err != nil {
		return err
	}
	lines, err := o.lines.BuildSalesLines(ctx, run, d.invoice.Lines)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return noLines(constants.EntityInvoice, d.invoice.ID)
	}

	d.payload.CustomerRef = providers.Ref{Value: customerID}
	d.payload.DocNumber = common.StringValue(d.invoice.InvoiceNumber)
	d.payload.TxnDate = dateString(&d.invoice.TxnDate)
	d.payload.DueDate = dateString(d.invoice.DueDate)
	d.payload.Line = lines
	if memo := common.StringValue(d.invoice.Memo); memo != "" {
		d.payload.CustomerMemo = &struct {
			Value string `json:"value"`
		}{Value: memo}
	}
	return nil
}

func (d *invoiceDocument) create(ctx context.Context, o *SyncOrchestrator, run *syncRun) (string, string, error) {
	created, err := o.api.CreateInvoice(ctx, run.session, d.payload)
	if err != nil {
		return "", "", err
	}
	return created.ID, created.DocNumber, nil
}

func (d *invoiceDocument) loadSyncToken(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) error {
	current, err := o.api.GetInvoice(ctx, run.session, externalID)
	if err != nil {
		return err
	}
	d.payload.ID = externalID
	d.payload.SyncToken = current.SyncToken
	return nil
}

func (d *invoiceDocument) update(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) (string, error) {
	d.payload.ID = externalID
	updated, err := o.api.UpdateInvoice(ctx, run.session, d.payload)
	if err != nil {
		return "", err
	}
	return updated.DocNumber, nil
}

func (o *SyncOrchestrator) loadInvoice(ctx context.Context, trig SyncTrigger) func() (syncDocument, error) {
	return func() (syncDocument, error) {
		inv, err := o.docs.GetInvoice(ctx, trig.TenantID, trig.EntityID)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, ErrDocumentNotFound
		}
		return &invoiceDocument{invoice: inv}, nil
	}
}

func (o *SyncOrchestrator) CreateInvoice(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncCreate(ctx, trig, constants.EntityInvoice, o.loadInvoice(ctx, trig))
}

func (o *SyncOrchestrator) UpdateInvoice(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncUpdate(ctx, trig, constants.EntityInvoice, o.loadInvoice(ctx, trig))
}

// ============================================================================
// Estimates
// ============================================================================

type estimateDocument struct {
	estimate *entities.Estimate
	payload  providers.Estimate
}

func (d *estimateDocument) entityType() constants.EntityType { return constants.EntityEstimate }
func (d *estimateDocument) localID() string                  { return d.estimate.ID }
func (d *estimateDocument) txnDate() time.Time               { return d.estimate.TxnDate }

func (d *estimateDocument) build(ctx context.Context, o *SyncOrchestrator, run *syncRun) error {
	customerID, err := o.resolver.ResolveCustomer(ctx, run, d.estimate.CustomerID)
	if err != nil {
		return err
	}
	lines, err := o.lines.BuildSalesLines(ctx, run, d.estimate.Lines)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return noLines(constants.EntityEstimate, d.estimate.ID)
	}

	d.payload.CustomerRef = providers.Ref{Value: customerID}
	d.payload.DocNumber = common.StringValue(d.estimate.EstimateNumber)
	d.payload.TxnDate = dateString(&d.estimate.TxnDate)
	d.payload.ExpirationDate = dateString(d.estimate.ExpirationDate)
	d.payload.PrivateNote = common.StringValue(d.estimate.Memo)
	d.payload.Line = lines
	return nil
}

func (d *estimateDocument) create(ctx context.Context, o *SyncOrchestrator, run *syncRun) (string, string, error) {
	created, err := o.api.CreateEstimate(ctx, run.session, d.payload)
	if err != nil {
		return "", "", err
	}
	return created.ID, created.DocNumber, nil
}

func (d *estimateDocument) loadSyncToken(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) error {
	current, err := o.api.GetEstimate(ctx, run.session, externalID)
	if err != nil {
		return err
	}
	d.payload.ID = externalID
	d.payload.SyncToken = current.SyncToken
	return nil
}

func (d *estimateDocument) update(ctx context.Context, o *SyncOrchestrator, run *syncRun, externalID string) (string, error) {
	d.payload.ID = externalID
	updated, err := o.api.UpdateEstimate(ctx, run.session, d.payload)
	if err != nil {
		return "", err
	}
	return updated.DocNumber, nil
}

func (o *SyncOrchestrator) loadEstimate(ctx context.Context, trig SyncTrigger) func() (syncDocument, error) {
	return func() (syncDocument, error) {
		est, err := o.docs.GetEstimate(ctx, trig.TenantID, trig.EntityID)
		if err != nil {
			return nil, err
		}
		if est == nil {
			return nil, ErrDocumentNotFound
		}
		return &estimateDocument{estimate: est}, nil
	}
}

func (o *SyncOrchestrator) CreateEstimate(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncCreate(ctx, trig, constants.EntityEstimate, o.loadEstimate(ctx, trig))
}

func (o *SyncOrchestrator) UpdateEstimate(ctx context.Context, trig SyncTrigger) (*SyncResult, error) {
	return o.syncUpdate(ctx, trig, constants.EntityEstimate, o.loadEstimate(ctx, trig))
}
