package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// DocumentRepo reads bills, invoices, estimates and their referenced records
// from the field-service application's schema. Not-found returns nil, nil.
type DocumentRepo struct {
	db *sqlx.DB
}

func NewDocumentRepo(db *sqlx.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) get(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := r.db.GetContext(ctx, dest, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DocumentRepo) lines(ctx context.Context, docType constants.EntityType, docID string) ([]entities.LineItem, error) {
	var lines []entities.LineItem
	if err := r.db.SelectContext(ctx, &lines, r.db.Rebind(constants.GetDocumentLines), string(docType), docID); err != nil {
		return nil, fmt.Errorf("failed to load %s lines: %w", docType, err)
	}
	return lines, nil
}

func (r *DocumentRepo) GetVendor(ctx context.Context, tenantID, id string) (*entities.Vendor, error) {
	var v entities.Vendor
	found, err := r.get(ctx, &v, constants.GetVendorByID, tenantID, id)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

func (r *DocumentRepo) GetCustomer(ctx context.Context, tenantID, id string) (*entities.Customer, error) {
	var c entities.Customer
	found, err := r.get(ctx, &c, constants.GetCustomerByID, tenantID, id)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *DocumentRepo) GetServiceItem(ctx context.Context, tenantID, id string) (*entities.ServiceItem, error) {
	var it entities.ServiceItem
	found, err := r.get(ctx, &it, constants.GetServiceItemByID, tenantID, id)
	if err != nil || !found {
		return nil, err
	}
	return &it, nil
}

// GetBill loads the bill with its lines and attachments.
func (r *DocumentRepo) GetBill(ctx context.Context, tenantID, id string) (*entities.Bill, error) {
	var b entities.Bill
	found, err := r.get(ctx, &b, constants.GetBillByID, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if !found {
		return nil, nil
	}

	if b.Lines, err = r.lines(ctx, constants.EntityBill, id); err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &b.Attachments, r.db.Rebind(constants.GetDocumentAttachments), string(constants.EntityBill), id); err != nil {
		return nil, fmt.Errorf("failed to load bill attachments: %w", err)
	}
	return &b, nil
}

func (r *DocumentRepo) GetInvoice(ctx context.Context, tenantID, id string) (*entities.Invoice, error) {
	var inv entities.Invoice
	found, err := r.get(ctx, &inv, constants.GetInvoiceByID, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if !found {
		return nil, nil
	}

	if inv.Lines, err = r.lines(ctx, constants.EntityInvoice, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *DocumentRepo) GetEstimate(ctx context.Context, tenantID, id string) (*entities.Estimate, error) {
	var est entities.Estimate
	found, err := r.get(ctx, &est, constants.GetEstimateByID, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load estimate: %w", err)
	}
	if !found {
		return nil, nil
	}

	if est.Lines, err = r.lines(ctx, constants.EntityEstimate, id); err != nil {
		return nil, err
	}
	return &est, nil
}
