package constants

// Local application tables. The sync engine only reads them.
const (
	GetVendorByID = `
	SELECT id, tenant_id, name, email, phone
	FROM vendors WHERE tenant_id = ? AND id = ?
	`

	GetCustomerByID = `
	SELECT id, tenant_id, name, email, phone
	FROM customers WHERE tenant_id = ? AND id = ?
	`

	GetServiceItemByID = `
	SELECT id, tenant_id, name, description, category
	FROM service_items WHERE tenant_id = ? AND id = ?
	`

	GetBillByID = `
	SELECT id, tenant_id, vendor_id, customer_id, purchase_order_id, bill_number, txn_date, due_date, memo
	FROM bills WHERE tenant_id = ? AND id = ?
	`

	GetInvoiceByID = `
	SELECT id, tenant_id, customer_id, invoice_number, txn_date, due_date, memo
	FROM invoices WHERE tenant_id = ? AND id = ?
	`

	GetEstimateByID = `
	SELECT id, tenant_id, customer_id, estimate_number, txn_date, expiration_date, memo
	FROM estimates WHERE tenant_id = ? AND id = ?
	`

	GetDocumentLines = `
	SELECT id, description, category, service_item_id, quantity, unit_price, total
	FROM document_line_items
	WHERE document_type = ? AND document_id = ?
	ORDER BY position ASC
	`

	GetDocumentAttachments = `
	SELECT id, file_name, content_type, storage_path, size_bytes
	FROM document_attachments
	WHERE document_type = ? AND document_id = ?
	ORDER BY created_at ASC
	`

	GetActiveAPIKey = `
	SELECT id, tenant_id, user_id, role, label, status, created_at
	FROM api_keys WHERE id = ? AND status = 'active'
	`

	InsertAPIKey = `
	INSERT INTO api_keys (id, tenant_id, user_id, role, label, status, created_at)
	VALUES (:id, :tenant_id, :user_id, :role, :label, :status, :created_at)
	`
)
