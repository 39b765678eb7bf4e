package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldops/ledgersync/internal/constants"

	"github.com/shopspring/decimal"
)

var testSession = Session{RealmID: "4620816365", AccessToken: "token-abc"}

func newTestProvider(url string) *AccountingProvider {
	return NewAccountingProvider(url, "75", 2*time.Second, 0, nil)
}

func TestAccountingProvider_QueryVendors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.URL.Path != "/v3/company/4620816365/query" {
			t.Errorf("Expected query path, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("Expected bearer token, got %s", got)
		}
		q := r.URL.Query().Get("query")
		if q != `select * from Vendor where DisplayName = 'O\'Brien Supply' maxresults 25` {
			t.Errorf("Unexpected query: %s", q)
		}
		if r.URL.Query().Get("minorversion") != "75" {
			t.Errorf("Expected minorversion 75")
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"QueryResponse":{"Vendor":[{"Id":"56","DisplayName":"O'Brien Supply","Active":true}]}}`))
	}))
	defer server.Close()

	vendors, err := newTestProvider(server.URL).QueryVendors(context.Background(), testSession, "O'Brien Supply", true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(vendors) != 1 || vendors[0].ID != "56" {
		t.Fatalf("Expected vendor 56, got %+v", vendors)
	}
}

func TestAccountingProvider_QueryAccountsFiltersTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		if !strings.Contains(q, "AccountType in ('Expense', 'Cost of Goods Sold')") {
			t.Errorf("Expected type filter, got %s", q)
		}
		if !strings.Contains(q, "Name = 'Materials'") {
			t.Errorf("Expected name filter, got %s", q)
		}
		w.Write([]byte(`{"QueryResponse":{"Account":[{"Id":"80","Name":"Materials","AccountType":"Cost of Goods Sold","Active":true}]}}`))
	}))
	defer server.Close()

	accts, err := newTestProvider(server.URL).QueryAccounts(context.Background(), testSession, AccountQuery{
		Name:  "Materials",
		Types: []string{AccountTypeExpense, AccountTypeCOGS},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(accts) != 1 || accts[0].ID != "80" {
		t.Errorf("Expected account 80, got %+v", accts)
	}
}

func TestAccountingProvider_CreateBillSendsNumericAmounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v3/company/4620816365/bill" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		line := payload["Line"].([]interface{})[0].(map[string]interface{})
		if amt, ok := line["Amount"].(float64); !ok || amt != 10 {
			t.Errorf("Expected numeric amount 10, got %v", line["Amount"])
		}
		w.Write([]byte(`{"Bill":{"Id":"145","SyncToken":"0","DocNumber":"B-100"}}`))
	}))
	defer server.Close()

	bill := Bill{
		DocNumber: "B-100",
		VendorRef: Ref{Value: "56"},
		Line: []Line{{
			Amount:     NewMoney(decimal.RequireFromString("10.00")),
			DetailType: DetailAccountExpense,
			AccountBasedExpenseLineDetail: &AccountExpenseDetail{
				AccountRef: Ref{Value: "80"},
			},
		}},
	}

	created, err := newTestProvider(server.URL).CreateBill(context.Background(), testSession, bill)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.ID != "145" {
		t.Errorf("Expected bill 145, got %s", created.ID)
	}
}

func TestAccountingProvider_FaultIsParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Fault":{"Error":[{"Message":"Duplicate Name Exists Error","Detail":"The name supplied already exists. : Id=123","code":"6240"}],"type":"ValidationFault"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).CreateVendor(context.Background(), testSession, Vendor{DisplayName: "Acme"})
	if err == nil {
		t.Fatal("Expected error")
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if pe.StatusCode != 400 {
		t.Errorf("Expected status 400, got %d", pe.StatusCode)
	}
	if !IsDuplicateName(err) {
		t.Error("Expected duplicate name classification")
	}
	if id, ok := ConflictingID(err); !ok || id != "123" {
		t.Errorf("Expected conflicting id 123, got %q", id)
	}
}

func TestAccountingProvider_ErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).GetBill(context.Background(), testSession, "145")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if len(pe.Details) != maxErrorBody {
		t.Errorf("Expected body truncated to %d, got %d", maxErrorBody, len(pe.Details))
	}
}

func TestAccountingProvider_TimeoutBecomesProviderError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewAccountingProvider(server.URL, "", 50*time.Millisecond, 0, nil)
	_, err := p.GetInvoice(context.Background(), testSession, "9")

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if pe.Code != constants.ErrCodeTimeout {
		t.Errorf("Expected timeout code, got %s", pe.Code)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Expected error to wrap context.DeadlineExceeded")
	}
}

func TestAccountingProvider_UploadAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/company/4620816365/upload" {
			t.Errorf("Expected upload path, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Expected multipart body: %v", err)
		}
		meta := r.MultipartForm.File["file_metadata_01"]
		content := r.MultipartForm.File["file_content_01"]
		if len(meta) != 1 || len(content) != 1 {
			t.Fatalf("Expected metadata and content parts")
		}
		if content[0].Filename != "receipt.pdf" {
			t.Errorf("Expected receipt.pdf, got %s", content[0].Filename)
		}
		f, _ := meta[0].Open()
		raw, _ := io.ReadAll(f)
		if !strings.Contains(string(raw), `"value":"145"`) {
			t.Errorf("Expected metadata to reference bill 145, got %s", raw)
		}
		w.Write([]byte(`{"AttachableResponse":[{"Attachable":{"Id":"5000","FileName":"receipt.pdf"}}]}`))
	}))
	defer server.Close()

	att, err := newTestProvider(server.URL).UploadAttachment(context.Background(), testSession, AttachmentUpload{
		EntityType:  "Bill",
		EntityID:    "145",
		FileName:    "receipt.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if att.ID != "5000" {
		t.Errorf("Expected attachable 5000, got %s", att.ID)
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	raw, err := json.Marshal(struct {
		Amount Money `json:"Amount"`
	}{Amount: NewMoney(decimal.RequireFromString("3.333333"))})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(raw) != `{"Amount":3.333333}` {
		t.Errorf("Expected bare number, got %s", raw)
	}

	var back struct {
		Amount Money `json:"Amount"`
	}
	if err := json.Unmarshal([]byte(`{"Amount":12.5}`), &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected 12.5, got %s", back.Amount)
	}
}
