package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type paymentRepository interface {
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	SaveCheckout(ctx context.Context, invoice *models.Invoice, txn *models.PaymentTransaction) error
	FindPendingTransaction(ctx context.Context, invoiceID string) (*models.PaymentTransaction, error)
	BillingSummary(ctx context.Context, santriID string) (*models.BillingSummary, error)
}

type paymentAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PaymentConfig tunes invoice numbering and checkout expiry.
type PaymentConfig struct {
	InvoicePrefix  string
	CheckoutExpiry time.Duration
}

// PaymentService manages invoices and manual checkout confirmation.
type PaymentService struct {
	repo      paymentRepository
	audit     paymentAuditWriter
	cfg       PaymentConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the service.
func NewPaymentService(repo paymentRepository, audit paymentAuditWriter, cfg PaymentConfig, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	if cfg.CheckoutExpiry <= 0 {
		cfg.CheckoutExpiry = 24 * time.Hour
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo: repo, audit: audit, cfg: cfg, validator: validate, logger: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// InvoiceListRequest describes list query parameters.
type InvoiceListRequest struct {
	SantriID string     `json:"santri_id"`
	Status   string     `json:"status"`
	DueFrom  *time.Time `json:"due_from"`
	DueTo    *time.Time `json:"due_to"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// CreateInvoiceRequest describes the create payload.
type CreateInvoiceRequest struct {
	SantriID string    `json:"santri_id" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	Amount   int64     `json:"amount" validate:"required,gt=0"`
	DueDate  time.Time `json:"due_date" validate:"required"`
}

// CheckoutRequest opens a payment attempt against an invoice.
type CheckoutRequest struct {
	Method string `json:"method" validate:"required,oneof=TRANSFER CASH QRIS"`
}

// ListInvoices returns invoices per filter.
func (s *PaymentService) ListInvoices(ctx context.Context, req InvoiceListRequest) ([]models.Invoice, *models.Pagination, error) {
	filter := models.InvoiceFilter{
		SantriID: req.SantriID,
		DueFrom:  req.DueFrom,
		DueTo:    req.DueTo,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if req.Status != "" {
		status := models.InvoiceStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown invoice status: "+req.Status)
		}
		filter.Status = &status
	}
	invoices, total, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return invoices, pagination, nil
}

// GetInvoice fetches one invoice.
func (s *PaymentService) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// CreateInvoice issues a new UNPAID invoice with a generated number.
func (s *PaymentService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	invoice := &models.Invoice{
		Number:   s.invoiceNumber(),
		SantriID: req.SantriID,
		Title:    req.Title,
		Amount:   req.Amount,
		DueDate:  req.DueDate,
		Status:   models.InvoiceUnpaid,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}
	return invoice, nil
}

// Checkout moves an UNPAID invoice to PENDING and opens a transaction with a
// reference code the wali quotes when paying.
func (s *PaymentService) Checkout(ctx context.Context, invoiceID string, req CheckoutRequest) (*models.PaymentTransaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransition(models.InvoicePending) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot open checkout for invoice in status "+string(invoice.Status))
	}
	now := s.now()
	invoice.Status = models.InvoicePending
	txn := &models.PaymentTransaction{
		InvoiceID: invoice.ID,
		Reference: s.reference(invoice.Number),
		Method:    req.Method,
		Amount:    invoice.Amount,
		ExpiresAt: now.Add(s.cfg.CheckoutExpiry),
	}
	if err := s.repo.SaveCheckout(ctx, invoice, txn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open checkout")
	}
	return txn, nil
}

// Confirm settles a PENDING invoice as PAID. Only admins call this; the
// settlement itself happened out of band.
func (s *PaymentService) Confirm(ctx context.Context, invoiceID, confirmedBy string) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransition(models.InvoicePaid) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot confirm invoice in status "+string(invoice.Status))
	}
	txn, err := s.repo.FindPendingTransaction(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "invoice has no open checkout transaction")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checkout transaction")
	}
	now := s.now()
	previous := invoice.Status
	invoice.Status = models.InvoicePaid
	invoice.PaidAt = &now
	txn.ConfirmedAt = &now
	txn.ConfirmedBy = &confirmedBy
	if err := s.repo.SaveCheckout(ctx, invoice, txn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payment")
	}
	s.journalInvoicePaid(ctx, invoice, previous, confirmedBy)
	return invoice, nil
}

// CancelCheckout reopens a PENDING invoice as UNPAID, abandoning the current
// transaction.
func (s *PaymentService) CancelCheckout(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoicePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"only a pending invoice can return to unpaid")
	}
	invoice.Status = models.InvoiceUnpaid
	if err := s.repo.SaveCheckout(ctx, invoice, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel checkout")
	}
	return invoice, nil
}

// Expire marks an overdue invoice EXPIRED.
func (s *PaymentService) Expire(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransition(models.InvoiceExpired) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot expire invoice in status "+string(invoice.Status))
	}
	invoice.Status = models.InvoiceExpired
	if err := s.repo.SaveCheckout(ctx, invoice, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire invoice")
	}
	return invoice, nil
}

// Summary aggregates invoice totals, school-wide or per santri.
func (s *PaymentService) Summary(ctx context.Context, santriID string) (*models.BillingSummary, error) {
	summary, err := s.repo.BillingSummary(ctx, santriID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise billing")
	}
	return summary, nil
}

func (s *PaymentService) invoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", s.cfg.InvoicePrefix, s.now().Format("200601"), suffix)
}

func (s *PaymentService) reference(invoiceNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("PAY-%s-%s", invoiceNumber, suffix)
}

func (s *PaymentService) journalInvoicePaid(ctx context.Context, invoice *models.Invoice, previous models.InvoiceStatus, actorID string) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"status": string(invoice.Status)})
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &actorID,
		Action:     models.AuditActionInvoicePaid,
		Resource:   "invoices",
		ResourceID: &invoice.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  s.now(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write invoice audit entry", zap.String("invoice_id", invoice.ID), zap.Error(err))
	}
}
