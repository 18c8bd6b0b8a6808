package websockets

import (
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/shopspring/decimal"
)

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeOrderPaid is sent when an order is settled.
	MessageTypeOrderPaid MessageType = "orderPaid"
	// MessageTypeSubscriptionActivated is sent when a subscription becomes active.
	MessageTypeSubscriptionActivated MessageType = "subscriptionActivated"
	// MessageTypeEarningCredited is sent when a merchant earning is credited.
	MessageTypeEarningCredited MessageType = "earningCredited"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SettlementPayload is the payload of every settlement message.
type SettlementPayload struct {
	PaymentID      string           `json:"payment_id"`
	Txid           string           `json:"txid"`
	StoreID        string           `json:"store_id,omitempty"`
	OrderID        string           `json:"order_id,omitempty"`
	SubscriptionID string           `json:"subscription_id,omitempty"`
	EarningID      string           `json:"earning_id,omitempty"`
	Amount         decimal.Decimal  `json:"amount"`
	MerchantAmount *decimal.Decimal `json:"merchant_amount,omitempty"`
}

// SettlementMessage builds the notification for a settled payment.
func SettlementMessage(s *models.Settlement) Message {
	msgType := MessageTypeOrderPaid
	switch s.Purpose {
	case models.PurposeSubscription:
		msgType = MessageTypeSubscriptionActivated
	case models.PurposePaymentLink:
		msgType = MessageTypeEarningCredited
	}
	return Message{
		Type: msgType,
		Payload: SettlementPayload{
			PaymentID:      s.PaymentId,
			Txid:           s.Txid,
			StoreID:        s.StoreId,
			OrderID:        s.OrderId,
			SubscriptionID: s.SubscriptionId,
			EarningID:      s.EarningId,
			Amount:         s.Amount,
			MerchantAmount: s.MerchantAmount,
		},
	}
}
