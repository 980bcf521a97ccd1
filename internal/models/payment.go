package models

import "time"

// InvoiceStatus captures the billing lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "UNPAID"
	InvoicePending InvoiceStatus = "PENDING"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceExpired InvoiceStatus = "EXPIRED"
)

// Valid returns true when the status is a supported value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceUnpaid, InvoicePending, InvoicePaid, InvoiceExpired:
		return true
	default:
		return false
	}
}

// invoiceTransitions is the closed transition table for invoices. PENDING is
// entered by checkout and settles to PAID or falls back on expiry.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceUnpaid:  {InvoicePending, InvoiceExpired},
	InvoicePending: {InvoicePaid, InvoiceUnpaid, InvoiceExpired},
}

// CanTransition validates a status change against the table.
func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Invoice represents a billable item (monthly SPP, registration, etc).
type Invoice struct {
	ID        string        `db:"id" json:"id"`
	Number    string        `db:"number" json:"number"`
	SantriID  string        `db:"santri_id" json:"santri_id"`
	Title     string        `db:"title" json:"title"`
	Amount    int64         `db:"amount" json:"amount"`
	DueDate   time.Time     `db:"due_date" json:"due_date"`
	Status    InvoiceStatus `db:"status" json:"status"`
	PaidAt    *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// InvoiceFilter defines query filters.
type InvoiceFilter struct {
	SantriID string
	Status   *InvoiceStatus
	DueFrom  *time.Time
	DueTo    *time.Time
	Page     int
	PageSize int
}

// PaymentTransaction is one checkout attempt against an invoice. Settlement
// itself happens at an external collaborator; only the reference and outcome
// are recorded here.
type PaymentTransaction struct {
	ID          string     `db:"id" json:"id"`
	InvoiceID   string     `db:"invoice_id" json:"invoice_id"`
	Reference   string     `db:"reference" json:"reference"`
	Method      string     `db:"method" json:"method"`
	Amount      int64      `db:"amount" json:"amount"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ConfirmedBy *string    `db:"confirmed_by" json:"confirmed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// BillingSummary aggregates invoice totals, typically per santri or school-wide.
type BillingSummary struct {
	TotalInvoices int   `json:"total_invoices"`
	UnpaidCount   int   `json:"unpaid_count"`
	PaidCount     int   `json:"paid_count"`
	UnpaidAmount  int64 `json:"unpaid_amount"`
	PaidAmount    int64 `json:"paid_amount"`
}
