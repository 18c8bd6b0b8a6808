package storage

import (
	"context"

	"github.com/chris/pi-settlement/pkg/models"
)

// SubscriptionReader defines the interface for reading subscriptions.
type SubscriptionReader interface {
	// GetActiveSubscription returns the user's active subscription or ErrNotFound.
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}
