package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Local documents owned by the field-service application. Read-only here.

type Vendor struct {
	ID       string  `db:"id"`
	TenantID string  `db:"tenant_id"`
	Name     string  `db:"name"`
	Email    *string `db:"email"`
	Phone    *string `db:"phone"`
}

type Customer struct {
	ID       string  `db:"id"`
	TenantID string  `db:"tenant_id"`
	Name     string  `db:"name"`
	Email    *string `db:"email"`
	Phone    *string `db:"phone"`
}

// ServiceItem is a billable product or service in the local catalogue.
type ServiceItem struct {
	ID          string  `db:"id"`
	TenantID    string  `db:"tenant_id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	Category    *string `db:"category"`
}

// LineItem is one row of a bill, invoice or estimate. UnitPrice is whatever
// the user typed and is not trusted; Total is authoritative.
type LineItem struct {
	ID            string              `db:"id"`
	Description   *string             `db:"description"`
	Category      *string             `db:"category"`
	ServiceItemID *string             `db:"service_item_id"`
	Quantity      decimal.NullDecimal `db:"quantity"`
	UnitPrice     decimal.NullDecimal `db:"unit_price"`
	Total         decimal.NullDecimal `db:"total"`
}

// CategoryName returns the trimmed category or "".
func (l LineItem) CategoryName() string {
	if l.Category == nil {
		return ""
	}
	return *l.Category
}

func (l LineItem) DescriptionText() string {
	if l.Description == nil {
		return ""
	}
	return *l.Description
}

type Attachment struct {
	ID          string `db:"id"`
	FileName    string `db:"file_name"`
	ContentType string `db:"content_type"`
	StoragePath string `db:"storage_path"`
	SizeBytes   int64  `db:"size_bytes"`
}

type Bill struct {
	ID              string     `db:"id"`
	TenantID        string     `db:"tenant_id"`
	VendorID        string     `db:"vendor_id"`
	CustomerID      *string    `db:"customer_id"`
	PurchaseOrderID *string    `db:"purchase_order_id"`
	BillNumber      *string    `db:"bill_number"`
	TxnDate         time.Time  `db:"txn_date"`
	DueDate         *time.Time `db:"due_date"`
	Memo            *string    `db:"memo"`

	Lines       []LineItem   `db:"-"`
	Attachments []Attachment `db:"-"`
}

type Invoice struct {
	ID            string     `db:"id"`
	TenantID      string     `db:"tenant_id"`
	CustomerID    string     `db:"customer_id"`
	InvoiceNumber *string    `db:"invoice_number"`
	TxnDate       time.Time  `db:"txn_date"`
	DueDate       *time.Time `db:"due_date"`
	Memo          *string    `db:"memo"`

	Lines []LineItem `db:"-"`
}

type Estimate struct {
	ID             string     `db:"id"`
	TenantID       string     `db:"tenant_id"`
	CustomerID     string     `db:"customer_id"`
	EstimateNumber *string    `db:"estimate_number"`
	TxnDate        time.Time  `db:"txn_date"`
	ExpirationDate *time.Time `db:"expiration_date"`
	Memo           *string    `db:"memo"`

	Lines []LineItem `db:"-"`
}
