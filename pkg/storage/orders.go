package storage

import (
	"context"
	"time"

	"github.com/chris/pi-settlement/pkg/models"
)

// OrderStore defines the order operations the settlement flow needs. Order creation
// at checkout belongs to the storefront.
type OrderStore interface {
	// GetOrder retrieves an order by its ID.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// AttachPayment records the payment id on a pending order once the payment is approved.
	AttachPayment(ctx context.Context, orderID, paymentID string) error

	// MarkOrderPaid flips a pending order to paid and claims txid for it.
	MarkOrderPaid(ctx context.Context, orderID, txid string) error

	// MarkOrderVerificationFailed flips a pending order to verification_failed.
	MarkOrderVerificationFailed(ctx context.Context, orderID, reason string) error

	// GetStalePendingOrders retrieves pending orders with an attached payment that are older than maxAge.
	GetStalePendingOrders(ctx context.Context, maxAge time.Duration) ([]models.Order, error)
}
