package services

import (
	"context"
	"errors"
	"testing"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"
	gormModels "fieldops/ledgersync/internal/models/gorm"
	"fieldops/ledgersync/internal/providers"
)

func newTestResolver(t *testing.T, api AccountingAPI, docs DocumentSource) (*EntityResolver, *testStores) {
	stores := newTestStores(t)
	return NewEntityResolver(api, docs, stores.mappings, stores.logs, NewAccountResolver(api)), stores
}

func TestEntityResolver_UsesExistingMapping(t *testing.T) {
	api := newFakePlatform()
	r, stores := newTestResolver(t, api, newFakeDocs())
	ctx := context.Background()

	if err := stores.mappings.Upsert(ctx, constants.EntityVendor, &gormModels.EntityMapping{
		TenantID: "t1", LocalID: "v1", ExternalID: "55", SyncStatus: constants.SyncStatusSynced,
	}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	id, err := r.ResolveVendor(ctx, newTestRun("t1"), "v1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "55" {
		t.Errorf("Expected 55, got %s", id)
	}
	if len(api.calls) != 0 {
		t.Errorf("Expected no platform calls, got %v", api.calls)
	}
}

func TestEntityResolver_LinksExactMatch(t *testing.T) {
	api := newFakePlatform()
	api.vendors = []providers.Vendor{{ID: "42", DisplayName: "Acme Supply"}}
	docs := newFakeDocs()
	docs.vendors["v1"] = &entities.Vendor{ID: "v1", Name: "  acme   supply "}
	r, stores := newTestResolver(t, api, docs)
	ctx := context.Background()

	id, err := r.ResolveVendor(ctx, newTestRun("t1"), "v1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "42" {
		t.Errorf("Expected 42, got %s", id)
	}
	if api.callCount("CreateVendor") != 0 {
		t.Error("Expected no create when an exact match exists")
	}

	m, _ := stores.mappings.Get(ctx, constants.EntityVendor, "t1", "v1")
	if m == nil || m.ExternalID != "42" || m.SyncStatus != constants.SyncStatusSynced {
		t.Errorf("Expected synced mapping to 42, got %+v", m)
	}
	logs, _ := stores.logs.ListForEntity(ctx, "t1", string(constants.EntityVendor), "v1", 10)
	if len(logs) != 1 || logs[0].Action != string(constants.ActionLinkExisting) {
		t.Errorf("Expected one link_existing log, got %+v", logs)
	}
}

func TestEntityResolver_CreatesWhenMissing(t *testing.T) {
	api := newFakePlatform()
	docs := newFakeDocs()
	docs.customers["c1"] = &entities.Customer{ID: "c1", Name: "Jane Homeowner", Email: strPtr("jane@example.com")}
	r, _ := newTestResolver(t, api, docs)

	id, err := r.ResolveCustomer(context.Background(), newTestRun("t1"), "c1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id == "" {
		t.Fatal("Expected an id")
	}
	if len(api.customers) != 1 || api.customers[0].PrimaryEmailAddr == nil {
		t.Errorf("Expected one created customer with email, got %+v", api.customers)
	}
}

func TestEntityResolver_DuplicateNameUsesIDFromError(t *testing.T) {
	api := newFakePlatform()
	api.createVendorFunc = func(v providers.Vendor) (*providers.Vendor, error) {
		return nil, duplicateError(constants.FaultDuplicateName, "The name supplied already exists. : Id=123")
	}
	docs := newFakeDocs()
	docs.vendors["v1"] = &entities.Vendor{ID: "v1", Name: "Acme"}
	r, stores := newTestResolver(t, api, docs)
	ctx := context.Background()

	id, err := r.ResolveVendor(ctx, newTestRun("t1"), "v1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "123" {
		t.Errorf("Expected 123, got %s", id)
	}
	// One exact search before create, none after.
	if n := api.callCount("QueryVendors"); n != 1 {
		t.Errorf("Expected 1 search, got %d", n)
	}

	logs, _ := stores.logs.ListForEntity(ctx, "t1", string(constants.EntityVendor), "v1", 10)
	if len(logs) != 1 || logs[0].Action != string(constants.ActionConflictRecovered) {
		t.Errorf("Expected one conflict_recovered log, got %+v", logs)
	}
}

func TestEntityResolver_DuplicateNameFallsBackToFuzzySearch(t *testing.T) {
	api := newFakePlatform()
	api.vendors = []providers.Vendor{
		{ID: "77", DisplayName: "Acme Supply Co (deleted)"},
		{ID: "78", DisplayName: "Acme Supply Co."},
	}
	api.createVendorFunc = func(v providers.Vendor) (*providers.Vendor, error) {
		return nil, duplicateError(constants.FaultDuplicateName, "The name supplied already exists.")
	}
	docs := newFakeDocs()
	docs.vendors["v1"] = &entities.Vendor{ID: "v1", Name: "Acme Supply Co"}
	r, _ := newTestResolver(t, api, docs)

	id, err := r.ResolveVendor(context.Background(), newTestRun("t1"), "v1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "78" {
		t.Errorf("Expected shortest containing name 78, got %s", id)
	}
	if n := api.callCount("QueryVendors"); n != 2 {
		t.Errorf("Expected exact and fuzzy searches, got %d", n)
	}
}

func TestEntityResolver_DuplicateUnrecoverableReturnsOriginalError(t *testing.T) {
	api := newFakePlatform()
	createErr := duplicateError(constants.FaultDuplicateName, "The name supplied already exists.")
	api.createVendorFunc = func(v providers.Vendor) (*providers.Vendor, error) { return nil, createErr }
	docs := newFakeDocs()
	docs.vendors["v1"] = &entities.Vendor{ID: "v1", Name: "Ghost Vendor"}
	r, _ := newTestResolver(t, api, docs)

	_, err := r.ResolveVendor(context.Background(), newTestRun("t1"), "v1")
	if !errors.Is(err, createErr) {
		t.Errorf("Expected original create error, got %v", err)
	}
}

func TestEntityResolver_MissingLocalRecord(t *testing.T) {
	r, _ := newTestResolver(t, newFakePlatform(), newFakeDocs())

	_, err := r.ResolveVendor(context.Background(), newTestRun("t1"), "nope")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected ResolutionError, got %v", err)
	}
}

func TestEntityResolver_CategoryItemCachedPerRun(t *testing.T) {
	api := newFakePlatform()
	r, _ := newTestResolver(t, api, newFakeDocs())
	run := newTestRun("t1")
	ctx := context.Background()

	first, err := r.CategoryItem(ctx, run, "Plumbing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := r.CategoryItem(ctx, run, "plumbing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first != second {
		t.Errorf("Expected same item, got %s and %s", first, second)
	}
	if n := api.callCount("CreateItem"); n != 1 {
		t.Errorf("Expected 1 item create, got %d", n)
	}
	if api.items[0].IncomeAccountRef == nil || api.items[0].IncomeAccountRef.Value != "9" {
		t.Errorf("Expected income account 9, got %+v", api.items[0].IncomeAccountRef)
	}
}

func TestAccountResolver_ExactThenFallback(t *testing.T) {
	api := newFakePlatform()
	accounts := NewAccountResolver(api)
	run := newTestRun("t1")
	ctx := context.Background()

	ref, err := accounts.ExpenseAccount(ctx, run, "Subcontractors")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ref.Value != "8" {
		t.Errorf("Expected exact match 8, got %s", ref.Value)
	}

	ref, err = accounts.ExpenseAccount(ctx, run, "Labor")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ref.Value != "7" {
		t.Errorf("Expected COGS fallback 7, got %s", ref.Value)
	}

	before := api.callCount("QueryAccounts")
	if _, err := accounts.ExpenseAccount(ctx, run, "Labor"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if after := api.callCount("QueryAccounts"); after != before {
		t.Errorf("Expected cached lookup, got %d extra queries", after-before)
	}
}

func TestAccountResolver_RejectsNonExpenseTypes(t *testing.T) {
	api := newFakePlatform()
	api.accounts = append(api.accounts,
		providers.Account{ID: "30", Name: "Equipment", AccountType: "Fixed Asset", Active: true},
		providers.Account{ID: "31", Name: "Owner Draws", AccountType: "Equity", Active: true},
	)
	// A platform that ignores the type filter.
	api.queryAccountsFunc = func(q providers.AccountQuery) ([]providers.Account, error) {
		var out []providers.Account
		for _, a := range api.accounts {
			if q.Name == "" || a.Name == q.Name {
				out = append(out, a)
			}
		}
		return out, nil
	}
	accounts := NewAccountResolver(api)
	run := newTestRun("t1")

	ref, err := accounts.ExpenseAccount(context.Background(), run, "Equipment")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ref.Value != "7" {
		t.Errorf("Expected COGS fallback 7 instead of the asset account, got %s", ref.Value)
	}
}

func TestAccountResolver_NoAccounts(t *testing.T) {
	api := newFakePlatform()
	api.accounts = nil

	_, err := NewAccountResolver(api).ExpenseAccount(context.Background(), newTestRun("t1"), "Labor")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected ResolutionError, got %v", err)
	}
	if resErr.Message != "no expense account available" {
		t.Errorf("Expected no expense account available, got %s", resErr.Message)
	}
}
