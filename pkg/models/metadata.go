package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Purpose selects which settlement record a payment produces.
type Purpose string

const (
	PurposeOrder        Purpose = "order"
	PurposeSubscription Purpose = "subscription"
	PurposePaymentLink  Purpose = "payment_link"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeOrder, PurposeSubscription, PurposePaymentLink:
		return true
	}
	return false
}

// ErrInvalidMetadata is returned when payment metadata cannot be decoded into a known purpose.
var ErrInvalidMetadata = errors.New("invalid payment metadata")

// PaymentMetadata is the metadata attached to a payment at creation time, keyed by
// Purpose. Exactly one of the purpose-specific fields is set.
type PaymentMetadata struct {
	Purpose      Purpose
	Order        *OrderMetadata
	Subscription *SubscriptionMetadata
	PaymentLink  *PaymentLinkMetadata
}

// OrderMetadata describes a storefront checkout. OrderID is set when the checkout
// created a pending order before payment.
type OrderMetadata struct {
	StoreID string `json:"store_id"`
	OrderID string `json:"order_id,omitempty"`
}

// SubscriptionMetadata describes a plan purchase.
type SubscriptionMetadata struct {
	PlanType string `json:"plan_type"`
	StoreID  string `json:"store_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// PaymentLinkMetadata describes a payment made through a merchant payment link.
type PaymentLinkMetadata struct {
	PaymentLinkID string `json:"payment_link_id"`
	StoreID       string `json:"store_id"`
	PricingType   string `json:"pricing_type,omitempty"`
	ProductID     string `json:"product_id,omitempty"`
}

// DecodeMetadata parses raw platform metadata into a PaymentMetadata.
func DecodeMetadata(raw json.RawMessage) (*PaymentMetadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: metadata is empty", ErrInvalidMetadata)
	}

	var head struct {
		Purpose Purpose `json:"purpose"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	meta := &PaymentMetadata{Purpose: head.Purpose}
	switch head.Purpose {
	case PurposeOrder:
		meta.Order = &OrderMetadata{}
		if err := json.Unmarshal(raw, meta.Order); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		if meta.Order.StoreID == "" {
			return nil, fmt.Errorf("%w: order metadata requires store_id", ErrInvalidMetadata)
		}
	case PurposeSubscription:
		meta.Subscription = &SubscriptionMetadata{}
		if err := json.Unmarshal(raw, meta.Subscription); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		if meta.Subscription.PlanType == "" {
			return nil, fmt.Errorf("%w: subscription metadata requires plan_type", ErrInvalidMetadata)
		}
	case PurposePaymentLink:
		meta.PaymentLink = &PaymentLinkMetadata{}
		if err := json.Unmarshal(raw, meta.PaymentLink); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		if meta.PaymentLink.PaymentLinkID == "" || meta.PaymentLink.StoreID == "" {
			return nil, fmt.Errorf("%w: payment_link metadata requires payment_link_id and store_id", ErrInvalidMetadata)
		}
	default:
		return nil, fmt.Errorf("%w: unknown purpose %q", ErrInvalidMetadata, head.Purpose)
	}

	return meta, nil
}

// StoreID returns the store the payment belongs to, if the purpose carries one.
func (m *PaymentMetadata) StoreID() string {
	switch m.Purpose {
	case PurposeOrder:
		return m.Order.StoreID
	case PurposeSubscription:
		return m.Subscription.StoreID
	case PurposePaymentLink:
		return m.PaymentLink.StoreID
	}
	return ""
}
