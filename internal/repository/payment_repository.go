package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// PaymentRepository manages persistence for invoices and checkout transactions.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a new repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListInvoices returns invoices per provided filter.
func (r *PaymentRepository) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	base := "FROM invoices"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.SantriID != "" {
		where = append(where, fmt.Sprintf("santri_id = $%d", len(args)+1))
		args = append(args, filter.SantriID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DueFrom != nil {
		where = append(where, fmt.Sprintf("due_date >= $%d", len(args)+1))
		args = append(args, *filter.DueFrom)
	}
	if filter.DueTo != nil {
		where = append(where, fmt.Sprintf("due_date <= $%d", len(args)+1))
		args = append(args, *filter.DueTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, number, santri_id, title, amount, due_date, status, paid_at, created_at, updated_at
%s WHERE %s ORDER BY due_date DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindInvoiceByID fetches one invoice.
func (r *PaymentRepository) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	query := `SELECT id, number, santri_id, title, amount, due_date, status, paid_at, created_at, updated_at FROM invoices WHERE id = $1`
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateInvoice inserts a new invoice.
func (r *PaymentRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	if invoice.Status == "" {
		invoice.Status = models.InvoiceUnpaid
	}
	query := `INSERT INTO invoices (id, number, santri_id, title, amount, due_date, status, paid_at, created_at, updated_at)
VALUES (:id, :number, :santri_id, :title, :amount, :due_date, :status, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// SaveCheckout updates the invoice status and writes the transaction in one
// transaction so the checkout state change is atomic.
func (r *PaymentRepository) SaveCheckout(ctx context.Context, invoice *models.Invoice, txn *models.PaymentTransaction) error {
	invoice.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	invoiceQuery := `UPDATE invoices SET status = :status, paid_at = :paid_at, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, invoiceQuery, invoice); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if txn != nil {
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = time.Now().UTC()
		}
		txnQuery := `INSERT INTO payment_transactions (id, invoice_id, reference, method, amount, expires_at, confirmed_at, confirmed_by, created_at)
VALUES (:id, :invoice_id, :reference, :method, :amount, :expires_at, :confirmed_at, :confirmed_by, :created_at)
ON CONFLICT (id) DO UPDATE SET confirmed_at = EXCLUDED.confirmed_at, confirmed_by = EXCLUDED.confirmed_by`
		if _, err := tx.NamedExecContext(ctx, txnQuery, txn); err != nil {
			return fmt.Errorf("save payment transaction: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout save: %w", err)
	}
	return nil
}

// FindPendingTransaction returns the open checkout transaction for an invoice.
func (r *PaymentRepository) FindPendingTransaction(ctx context.Context, invoiceID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	query := `SELECT id, invoice_id, reference, method, amount, expires_at, confirmed_at, confirmed_by, created_at
FROM payment_transactions WHERE invoice_id = $1 AND confirmed_at IS NULL ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &txn, query, invoiceID); err != nil {
		return nil, err
	}
	return &txn, nil
}

// BillingSummary aggregates invoice totals; santriID may be empty for the
// school-wide figure.
func (r *PaymentRepository) BillingSummary(ctx context.Context, santriID string) (*models.BillingSummary, error) {
	where := "1=1"
	args := []interface{}{}
	if santriID != "" {
		where = "santri_id = $1"
		args = append(args, santriID)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) AS total_invoices,
COALESCE(SUM(CASE WHEN status IN ('UNPAID','PENDING') THEN 1 ELSE 0 END),0) AS unpaid_count,
COALESCE(SUM(CASE WHEN status = 'PAID' THEN 1 ELSE 0 END),0) AS paid_count,
COALESCE(SUM(CASE WHEN status IN ('UNPAID','PENDING') THEN amount ELSE 0 END),0) AS unpaid_amount,
COALESCE(SUM(CASE WHEN status = 'PAID' THEN amount ELSE 0 END),0) AS paid_amount
FROM invoices WHERE %s`, where)
	var summary models.BillingSummary
	if err := r.db.QueryRowxContext(ctx, query, args...).
		Scan(&summary.TotalInvoices, &summary.UnpaidCount, &summary.PaidCount, &summary.UnpaidAmount, &summary.PaidAmount); err != nil {
		return nil, fmt.Errorf("billing summary: %w", err)
	}
	return &summary, nil
}
