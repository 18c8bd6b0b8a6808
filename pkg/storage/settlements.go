package storage

import (
	"context"

	"github.com/chris/pi-settlement/pkg/models"
)

// SettlementReader defines the interface for reading settlement records.
type SettlementReader interface {
	// GetSettlement retrieves the settlement record of a payment. It returns ErrNotFound if there is none.
	GetSettlement(ctx context.Context, paymentID string) (*models.Settlement, error)
}

// SettlementWriter defines the highly-privileged writes that settle a verified payment.
// Every method writes the settlement record, claims its txid and applies the purpose-specific
// change in one atomic operation. They return ErrAlreadySettled if the payment id already has
// a record and ErrTxAlreadyClaimed if the txid settled something else; nothing is written then.
type SettlementWriter interface {
	// CreateOrderSettlement inserts a new paid order.
	CreateOrderSettlement(ctx context.Context, settlement *models.Settlement, order *models.Order) error

	// ConfirmOrderSettlement flips a pre-created pending order to paid. It returns ErrOrderNotPending
	// if the order is no longer pending.
	ConfirmOrderSettlement(ctx context.Context, settlement *models.Settlement, orderID string) error

	// ActivateSubscriptionSettlement activates sub and supersedes the user's currently active
	// subscription, if any. The ids of superseded subscriptions are recorded on the settlement.
	ActivateSubscriptionSettlement(ctx context.Context, settlement *models.Settlement, sub *models.Subscription) error

	// CreditEarningSettlement inserts the payment transaction and the merchant earning and
	// credits the merchant balance.
	CreditEarningSettlement(ctx context.Context, settlement *models.Settlement, tx *models.PaymentTransaction, earning *models.MerchantEarning) error

	// RecordRejection stores a rejected settlement. When orderID is set the pending order is
	// marked verification_failed in the same write. The txid is not claimed.
	RecordRejection(ctx context.Context, settlement *models.Settlement, orderID string) error
}

// SettlementStore combines the reader and writer interfaces.
type SettlementStore interface {
	SettlementReader
	SettlementWriter
}
