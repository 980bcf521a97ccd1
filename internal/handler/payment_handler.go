package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// PaymentHandler exposes invoice and checkout endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	metrics  *service.MetricsService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, metrics *service.MetricsService) *PaymentHandler {
	return &PaymentHandler{payments: payments, metrics: metrics}
}

// List godoc
// @Summary List invoices
// @Tags Payments
// @Produce json
// @Param santriId query string false "Filter by santri"
// @Param status query string false "Filter by status"
// @Param dueFrom query string false "Due date lower bound (YYYY-MM-DD)"
// @Param dueTo query string false "Due date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /payments/invoices [get]
func (h *PaymentHandler) List(c *gin.Context) {
	req := service.InvoiceListRequest{
		SantriID: c.Query("santriId"),
		Status:   c.Query("status"),
		DueFrom:  dateQuery(c, "dueFrom"),
		DueTo:    dateQuery(c, "dueTo"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 20),
	}
	invoices, pagination, err := h.payments.ListInvoices(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get an invoice
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /payments/invoices/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	invoice, err := h.payments.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Create godoc
// @Summary Issue an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Router /payments/invoices [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.payments.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Checkout godoc
// @Summary Open a checkout transaction on an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.CheckoutRequest true "Checkout payload"
// @Success 201 {object} response.Envelope
// @Router /payments/invoices/{id}/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	txn, err := h.payments.Checkout(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, txn)
}

// Confirm godoc
// @Summary Confirm settlement of a pending invoice
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /payments/invoices/{id}/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	confirmedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		confirmedBy = claims.UserID
	}
	invoice, err := h.payments.Confirm(c.Request.Context(), c.Param("id"), confirmedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordInvoicePaid()
	response.JSON(c, http.StatusOK, invoice, nil)
}

// CancelCheckout godoc
// @Summary Abandon an open checkout, returning the invoice to unpaid
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /payments/invoices/{id}/checkout [delete]
func (h *PaymentHandler) CancelCheckout(c *gin.Context) {
	invoice, err := h.payments.CancelCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Expire godoc
// @Summary Mark an overdue invoice expired
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /payments/invoices/{id}/expire [post]
func (h *PaymentHandler) Expire(c *gin.Context) {
	invoice, err := h.payments.Expire(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Summary godoc
// @Summary Billing summary, school-wide or per santri
// @Tags Payments
// @Produce json
// @Param santriId query string false "Restrict to one santri"
// @Success 200 {object} response.Envelope
// @Router /payments/summary [get]
func (h *PaymentHandler) Summary(c *gin.Context) {
	summary, err := h.payments.Summary(c.Request.Context(), c.Query("santriId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
