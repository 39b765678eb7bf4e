package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"fieldops/ledgersync/internal/db/repositories"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/models/entities"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	logging.SetLogger(zap.NewNop().Sugar())
}

// setupSyncDB opens an in-memory database with every sync table.
func setupSyncDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

type testStores struct {
	db       *gorm.DB
	mappings *repositories.MappingRepo
	logs     *repositories.SyncLogRepo
	locks    *repositories.LockedPeriodRepo
	creds    *repositories.CredentialRepo
}

func newTestStores(t *testing.T) *testStores {
	db := setupSyncDB(t)
	return &testStores{
		db:       db,
		mappings: repositories.NewMappingRepo(db),
		logs:     repositories.NewSyncLogRepo(db),
		locks:    repositories.NewLockedPeriodRepo(db),
		creds:    repositories.NewCredentialRepo(db),
	}
}

func newTestRun(tenantID string) *syncRun {
	return &syncRun{
		tenantID: tenantID,
		userID:   "user-1",
		session:  providers.Session{RealmID: "realm-1", AccessToken: "access"},
		cache:    NewAccountCache(),
		log:      logging.GetLogger(),
	}
}

func strPtr(s string) *string { return &s }

// ============================================================================
// Fake accounting platform
// ============================================================================

// fakePlatform keeps created records in memory. Hook fields override the
// default behaviour of single operations.
type fakePlatform struct {
	mu     sync.Mutex
	nextID int
	calls  []string

	vendors   []providers.Vendor
	customers []providers.Customer
	items     []providers.Item
	accounts  []providers.Account
	bills     map[string]providers.Bill
	invoices  map[string]providers.Invoice
	estimates map[string]providers.Estimate
	uploads   []providers.AttachmentUpload

	createVendorFunc     func(v providers.Vendor) (*providers.Vendor, error)
	queryVendorsFunc     func(name string, exact bool) ([]providers.Vendor, error)
	queryAccountsFunc    func(q providers.AccountQuery) ([]providers.Account, error)
	createBillFunc       func(b providers.Bill) (*providers.Bill, error)
	updateBillFunc       func(b providers.Bill) (*providers.Bill, error)
	createInvoiceFunc    func(inv providers.Invoice) (*providers.Invoice, error)
	uploadAttachmentFunc func(a providers.AttachmentUpload) (*providers.Attachable, error)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:    100,
		bills:     map[string]providers.Bill{},
		invoices:  map[string]providers.Invoice{},
		estimates: map[string]providers.Estimate{},
		accounts: []providers.Account{
			{ID: "7", Name: "Job Materials", AccountType: providers.AccountTypeCOGS, Active: true},
			{ID: "8", Name: "Subcontractors", AccountType: providers.AccountTypeExpense, Active: true},
			{ID: "9", Name: "Services", AccountType: providers.AccountTypeIncome, Active: true},
		},
	}
}

func (f *fakePlatform) record(op string) {
	f.calls = append(f.calls, op)
}

func (f *fakePlatform) id() string {
	f.nextID++
	return fmt.Sprintf("%d", f.nextID)
}

// callCount returns how many times op was invoked.
func (f *fakePlatform) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func nameMatches(candidate, name string, exact bool) bool {
	if exact {
		return strings.EqualFold(candidate, name)
	}
	return strings.Contains(strings.ToLower(candidate), strings.ToLower(name))
}

func (f *fakePlatform) QueryVendors(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Vendor, error) {
	f.mu.Lock()
	f.record("QueryVendors")
	hook := f.queryVendorsFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(name, exact)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []providers.Vendor
	for _, v := range f.vendors {
		if nameMatches(v.DisplayName, name, exact) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakePlatform) QueryCustomers(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueryCustomers")
	var out []providers.Customer
	for _, c := range f.customers {
		if nameMatches(c.DisplayName, name, exact) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakePlatform) QueryItems(ctx context.Context, s providers.Session, name string, exact bool) ([]providers.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueryItems")
	var out []providers.Item
	for _, it := range f.items {
		if nameMatches(it.Name, name, exact) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakePlatform) QueryAccounts(ctx context.Context, s providers.Session, q providers.AccountQuery) ([]providers.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueryAccounts")
	if f.queryAccountsFunc != nil {
		return f.queryAccountsFunc(q)
	}
	var out []providers.Account
	for _, a := range f.accounts {
		if q.Name != "" && a.Name != q.Name {
			continue
		}
		if len(q.Types) > 0 {
			ok := false
			for _, t := range q.Types {
				if a.AccountType == t {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakePlatform) CreateVendor(ctx context.Context, s providers.Session, v providers.Vendor) (*providers.Vendor, error) {
	f.mu.Lock()
	f.record("CreateVendor")
	hook := f.createVendorFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(v)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.id()
	f.vendors = append(f.vendors, v)
	return &v, nil
}

func (f *fakePlatform) CreateCustomer(ctx context.Context, s providers.Session, c providers.Customer) (*providers.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCustomer")
	c.ID = f.id()
	f.customers = append(f.customers, c)
	return &c, nil
}

func (f *fakePlatform) CreateItem(ctx context.Context, s providers.Session, it providers.Item) (*providers.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateItem")
	it.ID = f.id()
	f.items = append(f.items, it)
	return &it, nil
}

func (f *fakePlatform) CreateBill(ctx context.Context, s providers.Session, b providers.Bill) (*providers.Bill, error) {
	f.mu.Lock()
	f.record("CreateBill")
	hook := f.createBillFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(b)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.id()
	b.SyncToken = "0"
	f.bills[b.ID] = b
	return &b, nil
}

func (f *fakePlatform) GetBill(ctx context.Context, s providers.Session, id string) (*providers.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetBill")
	b, ok := f.bills[id]
	if !ok {
		return nil, &providers.ProviderError{Operation: "GetBill", StatusCode: 400, Message: "Object Not Found"}
	}
	return &b, nil
}

func (f *fakePlatform) UpdateBill(ctx context.Context, s providers.Session, b providers.Bill) (*providers.Bill, error) {
	f.mu.Lock()
	f.record("UpdateBill")
	hook := f.updateBillFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(b)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.bills[b.ID]
	if !ok {
		return nil, &providers.ProviderError{Operation: "UpdateBill", StatusCode: 400, Message: "Object Not Found"}
	}
	if cur.SyncToken != b.SyncToken {
		return nil, staleObjectError()
	}
	b.SyncToken = bumpToken(cur.SyncToken)
	f.bills[b.ID] = b
	return &b, nil
}

func (f *fakePlatform) CreateInvoice(ctx context.Context, s providers.Session, inv providers.Invoice) (*providers.Invoice, error) {
	f.mu.Lock()
	f.record("CreateInvoice")
	hook := f.createInvoiceFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(inv)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	inv.ID = f.id()
	inv.SyncToken = "0"
	if inv.DocNumber == "" {
		inv.DocNumber = "1001"
	}
	f.invoices[inv.ID] = inv
	return &inv, nil
}

func (f *fakePlatform) GetInvoice(ctx context.Context, s providers.Session, id string) (*providers.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetInvoice")
	inv, ok := f.invoices[id]
	if !ok {
		return nil, &providers.ProviderError{Operation: "GetInvoice", StatusCode: 400, Message: "Object Not Found"}
	}
	return &inv, nil
}

func (f *fakePlatform) UpdateInvoice(ctx context.Context, s providers.Session, inv providers.Invoice) (*providers.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateInvoice")
	cur, ok := f.invoices[inv.ID]
	if !ok || cur.SyncToken != inv.SyncToken {
		return nil, staleObjectError()
	}
	inv.SyncToken = bumpToken(cur.SyncToken)
	f.invoices[inv.ID] = inv
	return &inv, nil
}

func (f *fakePlatform) CreateEstimate(ctx context.Context, s providers.Session, est providers.Estimate) (*providers.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateEstimate")
	est.ID = f.id()
	est.SyncToken = "0"
	f.estimates[est.ID] = est
	return &est, nil
}

func (f *fakePlatform) GetEstimate(ctx context.Context, s providers.Session, id string) (*providers.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetEstimate")
	est, ok := f.estimates[id]
	if !ok {
		return nil, &providers.ProviderError{Operation: "GetEstimate", StatusCode: 400, Message: "Object Not Found"}
	}
	return &est, nil
}

func (f *fakePlatform) UpdateEstimate(ctx context.Context, s providers.Session, est providers.Estimate) (*providers.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateEstimate")
	cur, ok := f.estimates[est.ID]
	if !ok || cur.SyncToken != est.SyncToken {
		return nil, staleObjectError()
	}
	est.SyncToken = bumpToken(cur.SyncToken)
	f.estimates[est.ID] = est
	return &est, nil
}

func (f *fakePlatform) UploadAttachment(ctx context.Context, s providers.Session, a providers.AttachmentUpload) (*providers.Attachable, error) {
	f.mu.Lock()
	f.record("UploadAttachment")
	hook := f.uploadAttachmentFunc
	f.mu.Unlock()
	if hook != nil {
		return hook(a)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, a)
	return &providers.Attachable{ID: f.id(), FileName: a.FileName}, nil
}

func bumpToken(tok string) string {
	var n int
	fmt.Sscanf(tok, "%d", &n)
	return fmt.Sprintf("%d", n+1)
}

func staleObjectError() error {
	return &providers.ProviderError{
		Operation:  "Update",
		StatusCode: 400,
		Message:    "Stale Object Error",
		Faults:     []providers.FaultError{{Code: "5010", Message: "Stale Object Error"}},
	}
}

func duplicateError(code, detail string) error {
	return &providers.ProviderError{
		Operation:  "Create",
		StatusCode: 400,
		Message:    "Validation Fault",
		Faults:     []providers.FaultError{{Code: code, Message: "Duplicate", Detail: detail}},
	}
}

// ============================================================================
// Local documents and credentials
// ============================================================================

type fakeDocs struct {
	vendors   map[string]*entities.Vendor
	customers map[string]*entities.Customer
	items     map[string]*entities.ServiceItem
	bills     map[string]*entities.Bill
	invoices  map[string]*entities.Invoice
	estimates map[string]*entities.Estimate
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		vendors:   map[string]*entities.Vendor{},
		customers: map[string]*entities.Customer{},
		items:     map[string]*entities.ServiceItem{},
		bills:     map[string]*entities.Bill{},
		invoices:  map[string]*entities.Invoice{},
		estimates: map[string]*entities.Estimate{},
	}
}

func (d *fakeDocs) GetVendor(ctx context.Context, tenantID, id string) (*entities.Vendor, error) {
	return d.vendors[id], nil
}

func (d *fakeDocs) GetCustomer(ctx context.Context, tenantID, id string) (*entities.Customer, error) {
	return d.customers[id], nil
}

func (d *fakeDocs) GetServiceItem(ctx context.Context, tenantID, id string) (*entities.ServiceItem, error) {
	return d.items[id], nil
}

func (d *fakeDocs) GetBill(ctx context.Context, tenantID, id string) (*entities.Bill, error) {
	if doc, ok := d.bills[id]; ok && doc.TenantID == tenantID {
		return doc, nil
	}
	return nil, nil
}

func (d *fakeDocs) GetInvoice(ctx context.Context, tenantID, id string) (*entities.Invoice, error) {
	if doc, ok := d.invoices[id]; ok && doc.TenantID == tenantID {
		return doc, nil
	}
	return nil, nil
}

func (d *fakeDocs) GetEstimate(ctx context.Context, tenantID, id string) (*entities.Estimate, error) {
	if doc, ok := d.estimates[id]; ok && doc.TenantID == tenantID {
		return doc, nil
	}
	return nil, nil
}

type fakeTokens struct {
	err error
}

func (f *fakeTokens) GetValidCredential(ctx context.Context, tenantID string) (providers.Session, error) {
	if f.err != nil {
		return providers.Session{}, f.err
	}
	return providers.Session{RealmID: "realm-1", AccessToken: "access"}, nil
}

type fakeAttachmentStore struct {
	files map[string][]byte
}

func (s *fakeAttachmentStore) Read(ctx context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", path)
	}
	return data, nil
}
