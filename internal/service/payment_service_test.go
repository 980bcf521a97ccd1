package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type fakePaymentRepo struct {
	invoices map[string]*models.Invoice
	pending  map[string]*models.PaymentTransaction
	savedTxn *models.PaymentTransaction
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		invoices: map[string]*models.Invoice{},
		pending:  map[string]*models.PaymentTransaction{},
	}
}

func (f *fakePaymentRepo) ListInvoices(_ context.Context, _ models.InvoiceFilter) ([]models.Invoice, int, error) {
	out := make([]models.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (f *fakePaymentRepo) FindInvoiceByID(_ context.Context, id string) (*models.Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *invoice
	return &copied, nil
}

func (f *fakePaymentRepo) CreateInvoice(_ context.Context, invoice *models.Invoice) error {
	invoice.ID = "inv-new"
	f.invoices[invoice.ID] = invoice
	return nil
}

func (f *fakePaymentRepo) SaveCheckout(_ context.Context, invoice *models.Invoice, txn *models.PaymentTransaction) error {
	f.invoices[invoice.ID] = invoice
	f.savedTxn = txn
	if txn != nil {
		if txn.ID == "" {
			txn.ID = "txn-new"
		}
		if txn.ConfirmedAt == nil {
			f.pending[invoice.ID] = txn
		} else {
			delete(f.pending, invoice.ID)
		}
	}
	return nil
}

func (f *fakePaymentRepo) FindPendingTransaction(_ context.Context, invoiceID string) (*models.PaymentTransaction, error) {
	txn, ok := f.pending[invoiceID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *txn
	return &copied, nil
}

func (f *fakePaymentRepo) BillingSummary(_ context.Context, _ string) (*models.BillingSummary, error) {
	return &models.BillingSummary{}, nil
}

func seedInvoice(repo *fakePaymentRepo, status models.InvoiceStatus) *models.Invoice {
	invoice := &models.Invoice{
		ID:       "inv-1",
		Number:   "INV-202403-ABCD1234",
		SantriID: "santri-1",
		Title:    "SPP Maret",
		Amount:   350000,
		DueDate:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:   status,
	}
	repo.invoices[invoice.ID] = invoice
	return invoice
}

func TestPaymentServiceCreateInvoiceNumbering(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewPaymentService(repo, nil, PaymentConfig{InvoicePrefix: "TPQ"}, nil, nil)

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		SantriID: "santri-1",
		Title:    "SPP April",
		Amount:   350000,
		DueDate:  time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceUnpaid, invoice.Status)
	assert.True(t, strings.HasPrefix(invoice.Number, "TPQ-"))
}

func TestPaymentServiceCheckoutOpensPendingTransaction(t *testing.T) {
	repo := newFakePaymentRepo()
	seedInvoice(repo, models.InvoiceUnpaid)
	svc := NewPaymentService(repo, nil, PaymentConfig{CheckoutExpiry: 2 * time.Hour}, nil, nil)

	txn, err := svc.Checkout(context.Background(), "inv-1", CheckoutRequest{Method: "TRANSFER"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePending, repo.invoices["inv-1"].Status)
	assert.NotEmpty(t, txn.Reference)
	assert.Equal(t, int64(350000), txn.Amount)
	assert.True(t, txn.ExpiresAt.After(time.Now()))
}

func TestPaymentServiceCheckoutRejectsWrongState(t *testing.T) {
	for _, status := range []models.InvoiceStatus{models.InvoicePending, models.InvoicePaid, models.InvoiceExpired} {
		t.Run(string(status), func(t *testing.T) {
			repo := newFakePaymentRepo()
			seedInvoice(repo, status)
			svc := NewPaymentService(repo, nil, PaymentConfig{}, nil, nil)

			_, err := svc.Checkout(context.Background(), "inv-1", CheckoutRequest{Method: "CASH"})
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
		})
	}
}

func TestPaymentServiceConfirmSettlesInvoice(t *testing.T) {
	repo := newFakePaymentRepo()
	seedInvoice(repo, models.InvoiceUnpaid)
	audit := &fakeAuditWriter{}
	svc := NewPaymentService(repo, audit, PaymentConfig{}, nil, nil)

	_, err := svc.Checkout(context.Background(), "inv-1", CheckoutRequest{Method: "TRANSFER"})
	require.NoError(t, err)

	invoice, err := svc.Confirm(context.Background(), "inv-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, invoice.Status)
	require.NotNil(t, invoice.PaidAt)
	require.NotNil(t, repo.savedTxn)
	assert.NotNil(t, repo.savedTxn.ConfirmedAt)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionInvoicePaid, audit.entries[0].Action)
}

func TestPaymentServiceConfirmRequiresPendingState(t *testing.T) {
	repo := newFakePaymentRepo()
	seedInvoice(repo, models.InvoiceUnpaid)
	svc := NewPaymentService(repo, nil, PaymentConfig{}, nil, nil)

	_, err := svc.Confirm(context.Background(), "inv-1", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestPaymentServiceConfirmWithoutOpenTransaction(t *testing.T) {
	repo := newFakePaymentRepo()
	seedInvoice(repo, models.InvoicePending)
	svc := NewPaymentService(repo, nil, PaymentConfig{}, nil, nil)

	_, err := svc.Confirm(context.Background(), "inv-1", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestPaymentServiceCancelCheckout(t *testing.T) {
	repo := newFakePaymentRepo()
	seedInvoice(repo, models.InvoicePending)
	svc := NewPaymentService(repo, nil, PaymentConfig{}, nil, nil)

	invoice, err := svc.CancelCheckout(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceUnpaid, invoice.Status)

	_, err = svc.CancelCheckout(context.Background(), "inv-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestPaymentServiceExpireTransitions(t *testing.T) {
	tests := []struct {
		status  models.InvoiceStatus
		wantErr bool
	}{
		{models.InvoiceUnpaid, false},
		{models.InvoicePending, false},
		{models.InvoicePaid, true},
		{models.InvoiceExpired, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			repo := newFakePaymentRepo()
			seedInvoice(repo, tt.status)
			svc := NewPaymentService(repo, nil, PaymentConfig{}, nil, nil)

			invoice, err := svc.Expire(context.Background(), "inv-1")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.InvoiceExpired, invoice.Status)
		})
	}
}
