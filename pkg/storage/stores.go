package storage

import (
	"context"

	"github.com/chris/pi-settlement/pkg/models"
)

// StoreDirectory defines read access to merchant stores.
type StoreDirectory interface {
	// GetStore retrieves a store by its ID.
	GetStore(ctx context.Context, storeID string) (*models.Store, error)
}

// EarningsReader defines read access to merchant earnings.
type EarningsReader interface {
	// GetMerchantBalance returns the merchant's running balance. A merchant with no earnings has a zero balance.
	GetMerchantBalance(ctx context.Context, merchantID string) (*models.MerchantBalance, error)

	// ListEarnings returns the earnings credited to a merchant.
	ListEarnings(ctx context.Context, merchantID string) ([]models.MerchantEarning, error)
}
