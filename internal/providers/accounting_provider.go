package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"fieldops/ledgersync/internal/common"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/metrics"

	"golang.org/x/time/rate"
)

// AccountingProvider talks to the accounting platform's REST API. Every call
// is throttled by a shared limiter and bounded by Timeout.
type AccountingProvider struct {
	BaseURL      string
	MinorVersion string
	Timeout      time.Duration
	Client       *http.Client
	// Debug dumps every request and response at debug level.
	Debug bool

	limiter *rate.Limiter
	metrics *metrics.MetricsRegistry
}

// NewAccountingProvider builds a client. requestsPerMinute <= 0 disables
// throttling.
func NewAccountingProvider(baseURL, minorVersion string, timeout time.Duration, requestsPerMinute int, m *metrics.MetricsRegistry) *AccountingProvider {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 10)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AccountingProvider{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		MinorVersion: minorVersion,
		Timeout:      timeout,
		Client:       &http.Client{},
		limiter:      limiter,
		metrics:      m,
	}
}

// ============================================================================
// Transport
// ============================================================================

func (p *AccountingProvider) endpoint(s Session, resource string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if p.MinorVersion != "" {
		query.Set("minorversion", p.MinorVersion)
	}
	return fmt.Sprintf("%s/v3/company/%s/%s?%s", p.BaseURL, url.PathEscape(s.RealmID), resource, query.Encode())
}

func (p *AccountingProvider) do(ctx context.Context, op string, s Session, method, target string, body io.Reader, contentType string, out interface{}) error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.ObserveExternalCall(op, "throttled", started)
		return p.transportError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if p.Debug {
		common.LogHTTPRequest(req)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		p.metrics.ObserveExternalCall(op, "transport_error", started)
		return p.transportError(op, err)
	}
	defer resp.Body.Close()

	if p.Debug {
		common.LogHTTPResponse(resp)
	}

	if err := p.handleHTTPError(op, resp); err != nil {
		p.metrics.ObserveExternalCall(op, fmt.Sprintf("%d", resp.StatusCode), started)
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			p.metrics.ObserveExternalCall(op, "decode_error", started)
			if errors.Is(err, context.DeadlineExceeded) {
				return p.transportError(op, err)
			}
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}

	p.metrics.ObserveExternalCall(op, "ok", started)
	return nil
}

func (p *AccountingProvider) transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{
			Operation: op,
			Code:      constants.ErrCodeTimeout,
			Message:   fmt.Sprintf("accounting platform timed out after %s", p.Timeout),
			Err:       err,
		}
	}
	return &ProviderError{
		Operation: op,
		Code:      constants.ErrCodeNetworkError,
		Message:   constants.GetErrorMessage(constants.ErrCodeNetworkError),
		Err:       err,
	}
}

func (p *AccountingProvider) handleHTTPError(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	pe := &ProviderError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Details:    common.TruncateUTF8(string(body), maxErrorBody),
	}

	var envelope struct {
		Fault *Fault `json:"Fault"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Fault != nil {
		pe.Faults = envelope.Fault.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		pe.Code = constants.ErrCodeAuthFailed
		pe.Message = constants.GetErrorMessage(constants.ErrCodeAuthFailed)
	case http.StatusTooManyRequests:
		pe.Code = constants.ErrCodeRateLimited
		pe.Message = constants.GetErrorMessage(constants.ErrCodeRateLimited)
	default:
		pe.Code = constants.ErrCodeExternalAPI
		pe.Message = constants.GetErrorMessage(constants.ErrCodeExternalAPI)
	}
	return pe
}

func (p *AccountingProvider) postJSON(ctx context.Context, op string, s Session, resource string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}
	return p.do(ctx, op, s, http.MethodPost, p.endpoint(s, resource, nil), bytes.NewReader(raw), "application/json", out)
}

func (p *AccountingProvider) get(ctx context.Context, op string, s Session, resource string, out interface{}) error {
	return p.do(ctx, op, s, http.MethodGet, p.endpoint(s, resource, nil), nil, "", out)
}

// ============================================================================
// Query
// ============================================================================

// quote escapes a literal for the platform's SQL-like query language.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, `'`, `\'`) + "'"
}

func nameClause(field, name string, exact bool) string {
	if exact {
		return fmt.Sprintf("%s = %s", field, quote(name))
	}
	return fmt.Sprintf("%s LIKE %s", field, quote("%"+name+"%"))
}

type queryResponse struct {
	QueryResponse struct {
		Vendor   []Vendor   `json:"Vendor"`
		Customer []Customer `json:"Customer"`
		Item     []Item     `json:"Item"`
		Account  []Account  `json:"Account"`
	} `json:"QueryResponse"`
}

func (p *AccountingProvider) query(ctx context.Context, op string, s Session, statement string) (*queryResponse, error) {
	q := url.Values{}
	q.Set("query", statement)

	var out queryResponse
	if err := p.do(ctx, op, s, http.MethodGet, p.endpoint(s, "query", q), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryVendors searches by display name, exactly or by substring.
func (p *AccountingProvider) QueryVendors(ctx context.Context, s Session, name string, exact bool) ([]Vendor, error) {
	out, err := p.query(ctx, "query_vendor", s, "select * from Vendor where "+nameClause("DisplayName", name, exact)+" maxresults 25")
	if err != nil {
		return nil, err
	}
	return out.QueryResponse.Vendor, nil
}

func (p *AccountingProvider) QueryCustomers(ctx context.Context, s Session, name string, exact bool) ([]Customer, error) {
	out, err := p.query(ctx, "query_customer", s, "select * from Customer where "+nameClause("DisplayName", name, exact)+" maxresults 25")
	if err != nil {
		return nil, err
	}
	return out.QueryResponse.Customer, nil
}

func (p *AccountingProvider) QueryItems(ctx context.Context, s Session, name string, exact bool) ([]Item, error) {
	out, err := p.query(ctx, "query_item", s, "select * from Item where "+nameClause("Name", name, exact)+" maxresults 25")
	if err != nil {
		return nil, err
	}
	return out.QueryResponse.Item, nil
}

// AccountQuery filters active accounts by type and, optionally, exact name.
type AccountQuery struct {
	Name  string
	Types []string
}

func (p *AccountingProvider) QueryAccounts(ctx context.Context, s Session, aq AccountQuery) ([]Account, error) {
	clauses := []string{"Active = true"}
	if aq.Name != "" {
		clauses = append(clauses, nameClause("Name", aq.Name, true))
	}
	if len(aq.Types) > 0 {
		quoted := make([]string, len(aq.Types))
		for i, t := range aq.Types {
			quoted[i] = quote(t)
		}
		clauses = append(clauses, "AccountType in ("+strings.Join(quoted, ", ")+")")
	}

	out, err := p.query(ctx, "query_account", s, "select * from Account where "+strings.Join(clauses, " and ")+" maxresults 100")
	if err != nil {
		return nil, err
	}
	return out.QueryResponse.Account, nil
}

// ============================================================================
// Names
// ============================================================================

func (p *AccountingProvider) CreateVendor(ctx context.Context, s Session, v Vendor) (*Vendor, error) {
	var out struct {
		Vendor Vendor `json:"Vendor"`
	}
	if err := p.postJSON(ctx, "create_vendor", s, "vendor", v, &out); err != nil {
		return nil, err
	}
	return &out.Vendor, nil
}

func (p *AccountingProvider) CreateCustomer(ctx context.Context, s Session, c Customer) (*Customer, error) {
	var out struct {
		Customer Customer `json:"Customer"`
	}
	if err := p.postJSON(ctx, "create_customer", s, "customer", c, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

func (p *AccountingProvider) CreateItem(ctx context.Context, s Session, it Item) (*Item, error) {
	var out struct {
		Item Item `json:"Item"`
	}
	if err := p.postJSON(ctx, "create_item", s, "item", it, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// ============================================================================
// Transactions
// ============================================================================

// Updates are full replacements: the payload must carry Id and the latest
// SyncToken or the platform rejects it as stale.

func (p *AccountingProvider) CreateBill(ctx context.Context, s Session, b Bill) (*Bill, error) {
	var out struct {
		Bill Bill `json:"Bill"`
	}
	if err := p.postJSON(ctx, "create_bill", s, "bill", b, &out); err != nil {
		return nil, err
	}
	return &out.Bill, nil
}

func (p *AccountingProvider) GetBill(ctx context.Context, s Session, id string) (*Bill, error) {
	var out struct {
		Bill Bill `json:"Bill"`
	}
	if err := p.get(ctx, "get_bill", s, "bill/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Bill, nil
}

func (p *AccountingProvider) UpdateBill(ctx context.Context, s Session, b Bill) (*Bill, error) {
	var out struct {
		Bill Bill `json:"Bill"`
	}
	if err := p.postJSON(ctx, "update_bill", s, "bill", b, &out); err != nil {
		return nil, err
	}
	return &out.Bill, nil
}

func (p *AccountingProvider) CreateInvoice(ctx context.Context, s Session, inv Invoice) (*Invoice, error) {
	var out struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := p.postJSON(ctx, "create_invoice", s, "invoice", inv, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (p *AccountingProvider) GetInvoice(ctx context.Context, s Session, id string) (*Invoice, error) {
	var out struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := p.get(ctx, "get_invoice", s, "invoice/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (p *AccountingProvider) UpdateInvoice(ctx context.Context, s Session, inv Invoice) (*Invoice, error) {
	var out struct {
		Invoice Invoice `json:"Invoice"`
	}
	if err := p.postJSON(ctx, "update_invoice", s, "invoice", inv, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (p *AccountingProvider) CreateEstimate(ctx context.Context, s Session, est Estimate) (*Estimate, error) {
	var out struct {
		Estimate Estimate `json:"Estimate"`
	}
	if err := p.postJSON(ctx, "create_estimate", s, "estimate", est, &out); err != nil {
		return nil, err
	}
	return &out.Estimate, nil
}

func (p *AccountingProvider) GetEstimate(ctx context.Context, s Session, id string) (*Estimate, error) {
	var out struct {
		Estimate Estimate `json:"Estimate"`
	}
	if err := p.get(ctx, "get_estimate", s, "estimate/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Estimate, nil
}

func (p *AccountingProvider) UpdateEstimate(ctx context.Context, s Session, est Estimate) (*Estimate, error) {
	var out struct {
		Estimate Estimate `json:"Estimate"`
	}
	if err := p.postJSON(ctx, "update_estimate", s, "estimate", est, &out); err != nil {
		return nil, err
	}
	return &out.Estimate, nil
}

// ============================================================================
// Attachments
// ============================================================================

// UploadAttachment sends the metadata and file content as one multipart
// request and links the file to the given transaction.
func (p *AccountingProvider) UploadAttachment(ctx context.Context, s Session, a AttachmentUpload) (*Attachable, error) {
	meta := map[string]interface{}{
		"AttachableRef": []map[string]interface{}{
			{"EntityRef": map[string]string{"type": a.EntityType, "value": a.EntityID}},
		},
		"FileName":    a.FileName,
		"ContentType": a.ContentType,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachment metadata: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", `form-data; name="file_metadata_01"; filename="attachment.json"`)
	metaHeader.Set("Content-Type", "application/json")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file_content_01"; filename=%q`, a.FileName))
	fileHeader.Set("Content-Type", a.ContentType)
	part, err = w.CreatePart(fileHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(a.Content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out struct {
		AttachableResponse []struct {
			Attachable Attachable `json:"Attachable"`
			Fault      *Fault     `json:"Fault"`
		} `json:"AttachableResponse"`
	}
	if err := p.do(ctx, "upload_attachment", s, http.MethodPost, p.endpoint(s, "upload", nil), &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}

	if len(out.AttachableResponse) == 0 {
		return nil, &ProviderError{Operation: "upload_attachment", Code: constants.ErrCodeExternalAPI, Message: "empty upload response"}
	}
	first := out.AttachableResponse[0]
	if first.Fault != nil {
		return nil, &ProviderError{
			Operation: "upload_attachment",
			Code:      constants.ErrCodeExternalAPI,
			Message:   constants.GetErrorMessage(constants.ErrCodeExternalAPI),
			Faults:    first.Fault.Error,
		}
	}
	return &first.Attachable, nil
}
