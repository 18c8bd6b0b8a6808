package settlement

import (
	"context"
	"errors"
	"strings"

	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/platform"
	"github.com/chris/pi-settlement/pkg/storage"
)

// Approve approves a payment on the platform and attaches it to the pre-created order it pays for, if any.
func (o *Orchestrator) Approve(ctx context.Context, paymentID string) (*models.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, invalidInput("Missing paymentId")
	}
	log := o.Logger.With("payment_id", paymentID)

	payment, err := o.Platform.Approve(ctx, paymentID)
	if err != nil {
		e := &Error{Kind: KindPlatform, Message: "Failed to approve payment", Details: err.Error(), Err: err}
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			e.Details = apiErr.Body
			e.PlatformStatus = apiErr.StatusCode
		}
		return nil, e
	}
	log.InfoContext(ctx, "payment approved")

	meta, err := models.DecodeMetadata(payment.Metadata)
	if err != nil {
		log.WarnContext(ctx, "approved payment has unusable metadata", "error", err)
		return payment, nil
	}
	if meta.Order == nil || meta.Order.OrderID == "" {
		return payment, nil
	}

	switch err := o.Store.AttachPayment(ctx, meta.Order.OrderID, paymentID); {
	case err == nil:
		log.InfoContext(ctx, "payment attached to order", "order_id", meta.Order.OrderID)
	case errors.Is(err, storage.ErrOrderNotPending):
		log.WarnContext(ctx, "order is not pending, payment not attached", "order_id", meta.Order.OrderID)
	default:
		log.ErrorContext(ctx, "failed to attach payment to order", "order_id", meta.Order.OrderID, "error", err)
	}
	return payment, nil
}

// Recover settles a payment whose client never reported completion. The txid is
// taken from the platform, which learns it from the payer's wallet.
func (o *Orchestrator) Recover(ctx context.Context, paymentID string) (*models.Settlement, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, invalidInput("Missing paymentId")
	}

	if rec, err := o.Store.GetSettlement(ctx, paymentID); err == nil {
		return o.SettleRetry(ctx, paymentID, rec.Txid)
	}

	payment, err := o.Platform.GetPayment(ctx, paymentID)
	if err != nil {
		e := &Error{Kind: KindPlatform, Message: "Failed to fetch payment", Details: err.Error(), Err: err}
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			e.Details = apiErr.Body
			e.PlatformStatus = apiErr.StatusCode
		}
		return nil, e
	}
	if payment.Status.Cancelled || payment.Status.UserCancelled {
		return nil, &Error{Kind: KindConflict, Message: "Payment was cancelled"}
	}
	txid := payment.TxID()
	if txid == "" {
		return nil, &Error{Kind: KindNotFound, Message: "Payment has no blockchain transaction yet"}
	}

	o.Logger.InfoContext(ctx, "recovering incomplete payment", "payment_id", paymentID, "txid", txid)
	return o.SettleRetry(ctx, paymentID, txid)
}
