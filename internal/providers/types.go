package providers

import (
	"github.com/shopspring/decimal"
)

// Session identifies one authorized call context on the platform.
type Session struct {
	RealmID     string
	AccessToken string
}

// Money is a decimal that encodes as a bare JSON number, which the platform
// requires for amounts and prices.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// Ref is the platform's {value, name} reference object.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type EmailAddress struct {
	Address string `json:"Address,omitempty"`
}

type PhoneNumber struct {
	FreeFormNumber string `json:"FreeFormNumber,omitempty"`
}

type Vendor struct {
	ID               string        `json:"Id,omitempty"`
	SyncToken        string        `json:"SyncToken,omitempty"`
	DisplayName      string        `json:"DisplayName"`
	CompanyName      string        `json:"CompanyName,omitempty"`
	PrimaryEmailAddr *EmailAddress `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *PhoneNumber  `json:"PrimaryPhone,omitempty"`
	Active           bool          `json:"Active,omitempty"`
}

type Customer struct {
	ID               string        `json:"Id,omitempty"`
	SyncToken        string        `json:"SyncToken,omitempty"`
	DisplayName      string        `json:"DisplayName"`
	CompanyName      string        `json:"CompanyName,omitempty"`
	PrimaryEmailAddr *EmailAddress `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *PhoneNumber  `json:"PrimaryPhone,omitempty"`
	Active           bool          `json:"Active,omitempty"`
}

// Item is a product or service on the platform.
type Item struct {
	ID                string `json:"Id,omitempty"`
	SyncToken         string `json:"SyncToken,omitempty"`
	Name              string `json:"Name"`
	Description       string `json:"Description,omitempty"`
	Type              string `json:"Type,omitempty"`
	IncomeAccountRef  *Ref   `json:"IncomeAccountRef,omitempty"`
	ExpenseAccountRef *Ref   `json:"ExpenseAccountRef,omitempty"`
	Active            bool   `json:"Active,omitempty"`
}

type Account struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	AccountType string `json:"AccountType"`
	Active      bool   `json:"Active"`
}

// Account types the resolvers are allowed to pick from.
const (
	AccountTypeExpense      = "Expense"
	AccountTypeOtherExpense = "Other Expense"
	AccountTypeCOGS         = "Cost of Goods Sold"
	AccountTypeIncome       = "Income"
	AccountTypeOtherIncome  = "Other Income"
)

// Line detail types
const (
	DetailAccountExpense = "AccountBasedExpenseLineDetail"
	DetailItemExpense    = "ItemBasedExpenseLineDetail"
	DetailSalesItem      = "SalesItemLineDetail"
)

const (
	BillableStatusBillable    = "Billable"
	BillableStatusNotBillable = "NotBillable"
)

type AccountExpenseDetail struct {
	AccountRef     Ref    `json:"AccountRef"`
	CustomerRef    *Ref   `json:"CustomerRef,omitempty"`
	BillableStatus string `json:"BillableStatus,omitempty"`
}

type ItemExpenseDetail struct {
	ItemRef        Ref    `json:"ItemRef"`
	Qty            Money  `json:"Qty"`
	UnitPrice      Money  `json:"UnitPrice"`
	CustomerRef    *Ref   `json:"CustomerRef,omitempty"`
	BillableStatus string `json:"BillableStatus,omitempty"`
}

type SalesItemDetail struct {
	ItemRef   Ref   `json:"ItemRef"`
	Qty       Money `json:"Qty"`
	UnitPrice Money `json:"UnitPrice"`
}

// Line is one transaction line. Exactly one detail pointer is set and
// DetailType names it.
type Line struct {
	ID                            string                `json:"Id,omitempty"`
	Description                   string                `json:"Description,omitempty"`
	Amount                        Money                 `json:"Amount"`
	DetailType                    string                `json:"DetailType"`
	AccountBasedExpenseLineDetail *AccountExpenseDetail `json:"AccountBasedExpenseLineDetail,omitempty"`
	ItemBasedExpenseLineDetail    *ItemExpenseDetail    `json:"ItemBasedExpenseLineDetail,omitempty"`
	SalesItemLineDetail           *SalesItemDetail      `json:"SalesItemLineDetail,omitempty"`
}

type Bill struct {
	ID          string `json:"Id,omitempty"`
	SyncToken   string `json:"SyncToken,omitempty"`
	DocNumber   string `json:"DocNumber,omitempty"`
	TxnDate     string `json:"TxnDate,omitempty"`
	DueDate     string `json:"DueDate,omitempty"`
	VendorRef   Ref    `json:"VendorRef"`
	PrivateNote string `json:"PrivateNote,omitempty"`
	Line        []Line `json:"Line"`
}

type Invoice struct {
	ID           string `json:"Id,omitempty"`
	SyncToken    string `json:"SyncToken,omitempty"`
	DocNumber    string `json:"DocNumber,omitempty"`
	TxnDate      string `json:"TxnDate,omitempty"`
	DueDate      string `json:"DueDate,omitempty"`
	CustomerRef  Ref    `json:"CustomerRef"`
	PrivateNote  string `json:"PrivateNote,omitempty"`
	CustomerMemo *struct {
		Value string `json:"value"`
	} `json:"CustomerMemo,omitempty"`
	Line []Line `json:"Line"`
}

type Estimate struct {
	ID             string `json:"Id,omitempty"`
	SyncToken      string `json:"SyncToken,omitempty"`
	DocNumber      string `json:"DocNumber,omitempty"`
	TxnDate        string `json:"TxnDate,omitempty"`
	ExpirationDate string `json:"ExpirationDate,omitempty"`
	CustomerRef    Ref    `json:"CustomerRef"`
	PrivateNote    string `json:"PrivateNote,omitempty"`
	Line           []Line `json:"Line"`
}

// AttachmentUpload is one file to attach to an existing transaction.
type AttachmentUpload struct {
	EntityType  string // platform entity name, e.g. "Bill"
	EntityID    string
	FileName    string
	ContentType string
	Content     []byte
}

type Attachable struct {
	ID          string `json:"Id,omitempty"`
	FileName    string `json:"FileName,omitempty"`
	ContentType string `json:"ContentType,omitempty"`
	Size        int64  `json:"Size,omitempty"`
}

// Fault is the platform's error envelope.
type Fault struct {
	Type  string       `json:"type"`
	Error []FaultError `json:"Error"`
}

type FaultError struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
	Code    string `json:"code"`
	Element string `json:"element,omitempty"`
}
