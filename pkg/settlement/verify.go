package settlement

import (
	"context"
	"errors"
	"strings"

	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
	"github.com/chris/pi-settlement/pkg/verifier"
	"github.com/chris/pi-settlement/pkg/websockets"
	"github.com/shopspring/decimal"
)

// VerifyRequest asks whether a ledger transaction pays for an order or matches explicit expectations.
type VerifyRequest struct {
	TransactionHash   string
	OrderID           string
	ExpectedAmount    *decimal.Decimal
	ExpectedRecipient string
	ExpectedMemo      string
	AutoRelease       bool
}

// VerifyOutcome is a successful verification.
type VerifyOutcome struct {
	Verified     bool
	Transaction  *models.VerificationResult
	OrderID      string
	AutoReleased bool
}

// VerifyTransaction verifies a transaction on the ledger. With an order id the expected
// amount and recipient come from the stored order and its store, and a verified
// transaction can release the order. Without one it is a read-only check against the
// supplied expectations.
func (o *Orchestrator) VerifyTransaction(ctx context.Context, req VerifyRequest) (*VerifyOutcome, error) {
	req.TransactionHash = strings.TrimSpace(req.TransactionHash)
	log := o.Logger.With("txid", req.TransactionHash, "order_id", req.OrderID)

	if req.TransactionHash == "" {
		return nil, invalidInput("Missing transaction_hash")
	}
	if req.OrderID == "" {
		if req.ExpectedAmount == nil || strings.TrimSpace(req.ExpectedRecipient) == "" {
			return nil, invalidInput("expected_amount and expected_recipient are required without order_id")
		}
		result, err := o.verifyLedger(ctx, verifier.Expectation{
			TxHash:    req.TransactionHash,
			Recipient: strings.TrimSpace(req.ExpectedRecipient),
			Amount:    *req.ExpectedAmount,
			Memo:      req.ExpectedMemo,
		})
		if err != nil {
			return nil, err
		}
		return &VerifyOutcome{Verified: true, Transaction: result}, nil
	}

	order, err := o.Store.GetOrder(ctx, req.OrderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Error{Kind: KindOrderNotFound, Message: "Order not found", Details: req.OrderID}
	}
	if err != nil {
		return nil, internalError("Failed to load order", err)
	}

	recipient := o.AppWallet
	store, err := o.Store.GetStore(ctx, order.StoreId)
	switch {
	case err == nil:
		if store.PayoutWallet != "" {
			recipient = store.PayoutWallet
		}
	case errors.Is(err, storage.ErrNotFound):
		log.WarnContext(ctx, "order store not found", "store_id", order.StoreId)
	default:
		return nil, internalError("Failed to load store", err)
	}
	if recipient == "" {
		return nil, &Error{Kind: KindInternal, Message: "No recipient wallet configured for store", Details: order.StoreId}
	}

	if req.ExpectedAmount != nil && !req.ExpectedAmount.Equal(order.Total) {
		log.WarnContext(ctx, "ignoring client expected amount", "client", req.ExpectedAmount.String(), "order_total", order.Total.String())
	}
	if req.ExpectedRecipient != "" && req.ExpectedRecipient != recipient {
		log.WarnContext(ctx, "ignoring client expected recipient", "client", req.ExpectedRecipient, "store_wallet", recipient)
	}

	result, err := o.verifyLedger(ctx, verifier.Expectation{
		TxHash:    req.TransactionHash,
		Recipient: recipient,
		Amount:    order.Total,
		Memo:      req.ExpectedMemo,
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Verification != nil && order.Status == models.PENDING {
			o.failOrder(ctx, log, order.Id, e.Verification.Error)
		}
		return nil, err
	}

	out := &VerifyOutcome{Verified: true, Transaction: result, OrderID: order.Id}
	if !req.AutoRelease || order.Status != models.PENDING {
		return out, nil
	}

	err = o.Store.MarkOrderPaid(ctx, order.Id, req.TransactionHash)
	switch {
	case err == nil:
		out.AutoReleased = true
		log.InfoContext(ctx, "order released after transaction verification")
		if pubErr := o.Publisher.Publish(ctx, websockets.Message{
			Type: websockets.MessageTypeOrderPaid,
			Payload: websockets.SettlementPayload{
				PaymentID: order.PiPaymentId,
				Txid:      req.TransactionHash,
				StoreID:   order.StoreId,
				OrderID:   order.Id,
				Amount:    order.Total,
			},
		}); pubErr != nil {
			log.WarnContext(ctx, "failed to publish order notification", "error", pubErr)
		}
		return out, nil
	case errors.Is(err, storage.ErrTxAlreadyClaimed):
		return nil, &Error{Kind: KindConflict, Message: "Transaction already used for another payment", Details: req.TransactionHash, Verification: result}
	case errors.Is(err, storage.ErrOrderNotPending):
		current, getErr := o.Store.GetOrder(ctx, order.Id)
		if getErr == nil && current.Status == models.PAID && current.PiTxid == req.TransactionHash {
			return out, nil
		}
		return nil, &Error{Kind: KindConflict, Message: "Order is no longer pending", Details: order.Id, Verification: result}
	}

	log.ErrorContext(ctx, "CRITICAL: transaction verified but order release was not recorded", "error", err)
	return nil, &Error{
		Kind:         KindRecordingFailed,
		Message:      "Transaction verified but order could not be released",
		Details:      err.Error(),
		Verification: result,
		Err:          err,
	}
}

// verifyLedger runs the verifier and turns every unverified outcome into an *Error.
func (o *Orchestrator) verifyLedger(ctx context.Context, exp verifier.Expectation) (*models.VerificationResult, error) {
	result, err := o.Verifier.Verify(ctx, exp)
	if err != nil {
		return nil, &Error{Kind: KindLedgerUnavailable, Message: "Could not verify transaction on blockchain", Details: err.Error(), Err: err}
	}
	if result.Verified {
		return result, nil
	}
	if !result.Definitive() {
		return nil, &Error{Kind: KindNotFound, Message: result.Error, Details: "txid " + exp.TxHash, Verification: result}
	}
	return nil, &Error{Kind: KindVerificationFailed, Message: "Transaction verification failed", Details: result.Error, Verification: result}
}
