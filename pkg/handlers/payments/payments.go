package payments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/handlers/httpio"
	"github.com/chris/pi-settlement/pkg/mapping"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/settlement"
)

// PaymentService is the part of the settlement service the payment endpoints call.
type PaymentService interface {
	Settle(ctx context.Context, req settlement.Request) (*models.Settlement, error)
	VerifyTransaction(ctx context.Context, req settlement.VerifyRequest) (*settlement.VerifyOutcome, error)
	Approve(ctx context.Context, paymentID string) (*models.Payment, error)
}

// PaymentsHandler holds the dependencies for payment-related handlers.
type PaymentsHandler struct {
	Service PaymentService
	Logger  *slog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(service PaymentService, logger *slog.Logger) *PaymentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsHandler{Service: service, Logger: logger}
}

// CompletePayment completes, verifies and settles a payment.
func (h *PaymentsHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var body api.CompletePaymentRequest
	if err := httpio.Decode(w, r, completePaymentSchema, &body); err != nil {
		httpio.BadRequest(w, err)
		return
	}

	rec, err := h.Service.Settle(r.Context(), mapping.ToDomainSettleRequest(&body, httpio.BearerToken(r)))
	if err != nil {
		status, resp := httpio.ErrorBody(err)
		if status >= http.StatusInternalServerError {
			h.Logger.ErrorContext(r.Context(), "payment settlement failed", "payment_id", body.PaymentId, "error", err)
		}
		httpio.JSON(w, status, resp)
		return
	}

	httpio.JSON(w, http.StatusOK, mapping.ToApiSettlement(rec))
}

// VerifyTransaction checks a ledger transaction, optionally releasing the order it pays for.
func (h *PaymentsHandler) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var body api.VerifyTransactionRequest
	if err := httpio.Decode(w, r, verifyTransactionSchema, &body); err != nil {
		httpio.BadRequest(w, err)
		return
	}

	out, err := h.Service.VerifyTransaction(r.Context(), mapping.ToDomainVerifyRequest(&body))
	if err != nil {
		status, resp := httpio.ErrorBody(err)
		if resp.Verified == nil {
			verified := false
			resp.Verified = &verified
		}
		httpio.JSON(w, status, resp)
		return
	}

	httpio.JSON(w, http.StatusOK, mapping.ToApiVerifyResponse(out))
}

// ApprovePayment approves a payment on the platform.
func (h *PaymentsHandler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	var body api.ApprovePaymentRequest
	if err := httpio.Decode(w, r, approvePaymentSchema, &body); err != nil {
		httpio.BadRequest(w, err)
		return
	}

	payment, err := h.Service.Approve(r.Context(), body.PaymentId)
	if err != nil {
		status, resp := httpio.ErrorBody(err)
		httpio.JSON(w, status, resp)
		return
	}

	amount := payment.Amount
	httpio.JSON(w, http.StatusOK, api.ApprovePaymentResponse{
		Success:   true,
		PaymentId: payment.Identifier,
		Amount:    &amount,
	})
}
