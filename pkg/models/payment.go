package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a payment as reported by the payment platform. After completion it is
// the source of truth for the expected amount and the purpose metadata.
type Payment struct {
	Identifier  string                 `json:"identifier"`
	UserUID     string                 `json:"user_uid"`
	Amount      decimal.Decimal        `json:"amount"`
	Memo        string                 `json:"memo"`
	Metadata    json.RawMessage        `json:"metadata"`
	FromAddress string                 `json:"from_address"`
	ToAddress   string                 `json:"to_address"`
	Direction   string                 `json:"direction"`
	Network     string                 `json:"network"`
	CreatedAt   time.Time              `json:"created_at"`
	Status      PaymentStatus          `json:"status"`
	Transaction *PaymentTransactionRef `json:"transaction"`
}

// PaymentStatus carries the lifecycle flags of a platform payment.
type PaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

// PaymentTransactionRef links a platform payment to its ledger transaction.
type PaymentTransactionRef struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// TxID returns the ledger transaction id attached to the payment, if any.
func (p *Payment) TxID() string {
	if p.Transaction == nil {
		return ""
	}
	return p.Transaction.TxID
}

// PlatformUser is the payer identity returned by the platform for an access token.
type PlatformUser struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}
