package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus defines the possible states of a storefront order.
type OrderStatus string

const (
	PENDING             OrderStatus = "pending"
	PAID                OrderStatus = "paid"
	VERIFICATION_FAILED OrderStatus = "verification_failed"
)

// SubscriptionStatus defines the possible states of a subscription.
type SubscriptionStatus string

const (
	ACTIVE     SubscriptionStatus = "active"
	SUPERSEDED SubscriptionStatus = "superseded"
)

// EarningStatus defines the possible states of a merchant earning.
type EarningStatus string

const (
	AVAILABLE EarningStatus = "available"
	PAID_OUT  EarningStatus = "paid_out"
)

// SettlementStatus defines the terminal outcomes of a settlement.
type SettlementStatus string

const (
	SETTLED  SettlementStatus = "settled"
	REJECTED SettlementStatus = "rejected"
)

// Customer holds the buyer details captured at checkout.
type Customer struct {
	Name    string `json:"name" dynamodbav:"name"`
	Email   string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone   string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Address string `json:"address,omitempty" dynamodbav:"address,omitempty"`
}

// OrderItem is a line item of an order.
type OrderItem struct {
	ProductID string          `json:"product_id" dynamodbav:"product_id"`
	Name      string          `json:"name" dynamodbav:"name"`
	Quantity  int             `json:"quantity" dynamodbav:"quantity"`
	Price     decimal.Decimal `json:"price" dynamodbav:"price"`
}

// Order represents a storefront order.
type Order struct {
	Id            string          `json:"id" dynamodbav:"id"`
	StoreId       string          `json:"store_id" dynamodbav:"store_id"`
	Customer      Customer        `json:"customer" dynamodbav:"customer"`
	Items         []OrderItem     `json:"items" dynamodbav:"items"`
	Total         decimal.Decimal `json:"total" dynamodbav:"total"`
	Status        OrderStatus     `json:"status" dynamodbav:"status"`
	PiPaymentId   string          `json:"pi_payment_id,omitempty" dynamodbav:"pi_payment_id,omitempty"`
	PiTxid        string          `json:"pi_txid,omitempty" dynamodbav:"pi_txid,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty" dynamodbav:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// ItemsTotal sums price times quantity over the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Subscription represents a user's plan subscription.
type Subscription struct {
	Id              string             `json:"id" dynamodbav:"id"`
	UserId          string             `json:"user_id" dynamodbav:"user_id"`
	StoreId         string             `json:"store_id,omitempty" dynamodbav:"store_id,omitempty"`
	PlanType        string             `json:"plan_type" dynamodbav:"plan_type"`
	Status          SubscriptionStatus `json:"status" dynamodbav:"status"`
	PiPaymentId     string             `json:"pi_payment_id" dynamodbav:"pi_payment_id"`
	PiTransactionId string             `json:"pi_transaction_id" dynamodbav:"pi_transaction_id"`
	Amount          decimal.Decimal    `json:"amount" dynamodbav:"amount"`
	StartedAt       time.Time          `json:"started_at" dynamodbav:"started_at"`
	ExpiresAt       time.Time          `json:"expires_at" dynamodbav:"expires_at"`
	SupersededAt    *time.Time         `json:"superseded_at,omitempty" dynamodbav:"superseded_at,omitempty"`
}

// PaymentTransaction records a marketplace or payment-link payment.
type PaymentTransaction struct {
	Id             string          `json:"id" dynamodbav:"id"`
	PiPaymentId    string          `json:"pi_payment_id" dynamodbav:"pi_payment_id"`
	PiTxid         string          `json:"pi_txid" dynamodbav:"pi_txid"`
	MerchantId     string          `json:"merchant_id" dynamodbav:"merchant_id"`
	StoreId        string          `json:"store_id" dynamodbav:"store_id"`
	PaymentLinkId  string          `json:"payment_link_id,omitempty" dynamodbav:"payment_link_id,omitempty"`
	PayerUid       string          `json:"payer_uid" dynamodbav:"payer_uid"`
	PricingType    string          `json:"pricing_type" dynamodbav:"pricing_type"`
	GrossAmount    decimal.Decimal `json:"gross_amount" dynamodbav:"gross_amount"`
	PlatformFee    decimal.Decimal `json:"platform_fee" dynamodbav:"platform_fee"`
	MerchantAmount decimal.Decimal `json:"merchant_amount" dynamodbav:"merchant_amount"`
	CreatedAt      time.Time       `json:"created_at" dynamodbav:"created_at"`
}

// MerchantEarning is the merchant's share of a PaymentTransaction, net of platform fee.
type MerchantEarning struct {
	Id            string          `json:"id" dynamodbav:"id"`
	MerchantId    string          `json:"merchant_id" dynamodbav:"merchant_id"`
	TransactionId string          `json:"transaction_id" dynamodbav:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" dynamodbav:"amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee" dynamodbav:"platform_fee"`
	Status        EarningStatus   `json:"status" dynamodbav:"status"`
	CreatedAt     time.Time       `json:"created_at" dynamodbav:"created_at"`
}

// Store is the merchant storefront a payment is made to.
type Store struct {
	Id           string `json:"id" dynamodbav:"id"`
	OwnerId      string `json:"owner_id" dynamodbav:"owner_id"`
	Name         string `json:"name" dynamodbav:"name"`
	PayoutWallet string `json:"payout_wallet,omitempty" dynamodbav:"payout_wallet,omitempty"`
}

// Settlement is the idempotency record of a payment, keyed by PaymentId. It is
// written at most once, in the same atomic write as the record it settles.
type Settlement struct {
	PaymentId      string              `json:"payment_id" dynamodbav:"payment_id"`
	Txid           string              `json:"txid" dynamodbav:"txid"`
	Purpose        Purpose             `json:"purpose" dynamodbav:"purpose"`
	Status         SettlementStatus    `json:"status" dynamodbav:"status"`
	Amount         decimal.Decimal     `json:"amount" dynamodbav:"amount"`
	PayerUid       string              `json:"payer_uid,omitempty" dynamodbav:"payer_uid,omitempty"`
	StoreId        string              `json:"store_id,omitempty" dynamodbav:"store_id,omitempty"`
	OrderId        string              `json:"order_id,omitempty" dynamodbav:"order_id,omitempty"`
	SubscriptionId string              `json:"subscription_id,omitempty" dynamodbav:"subscription_id,omitempty"`
	SupersededIds  []string            `json:"superseded_subscription_ids,omitempty" dynamodbav:"superseded_subscription_ids,omitempty"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
	TransactionId  string              `json:"transaction_id,omitempty" dynamodbav:"transaction_id,omitempty"`
	EarningId      string              `json:"earning_id,omitempty" dynamodbav:"earning_id,omitempty"`
	MerchantAmount *decimal.Decimal    `json:"merchant_amount,omitempty" dynamodbav:"merchant_amount,omitempty"`
	PlatformFee    *decimal.Decimal    `json:"platform_fee,omitempty" dynamodbav:"platform_fee,omitempty"`
	Verification   *VerificationResult `json:"verification,omitempty" dynamodbav:"verification,omitempty"`
	Error          string              `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at" dynamodbav:"created_at"`

	// Replayed is set when the record is returned from a previous settlement.
	Replayed bool `json:"replayed,omitempty" dynamodbav:"-"`
}

// MerchantBalance is the running total of a merchant's available earnings.
type MerchantBalance struct {
	MerchantId string          `json:"merchant_id" dynamodbav:"merchant_id"`
	Available  decimal.Decimal `json:"available" dynamodbav:"available"`
	UpdatedAt  time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}
