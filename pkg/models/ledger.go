package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OperationTypePayment is the ledger operation type that moves funds between accounts.
	OperationTypePayment = "payment"
	// AssetTypeNative identifies the network's native coin (Pi).
	AssetTypeNative = "native"
)

// LedgerTransaction is a transaction as observed on the ledger. It is final once observed.
type LedgerTransaction struct {
	Hash          string    `json:"hash"`
	Successful    bool      `json:"successful"`
	SourceAccount string    `json:"source_account"`
	CreatedAt     time.Time `json:"created_at"`
	Memo          *string   `json:"memo,omitempty"`
}

// LedgerOperation is a single operation belonging to a LedgerTransaction.
type LedgerOperation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	AssetType string          `json:"asset_type"`
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
}

// IsNativePayment reports whether the operation transfers the native asset.
func (op LedgerOperation) IsNativePayment() bool {
	return op.Type == OperationTypePayment && op.AssetType == AssetTypeNative
}

// VerificationReason classifies why a verification was rejected.
type VerificationReason string

const (
	ReasonNone               VerificationReason = ""
	ReasonNotFound           VerificationReason = "not_found"
	ReasonUnsuccessful       VerificationReason = "unsuccessful"
	ReasonNoPaymentOperation VerificationReason = "no_payment_operation"
	ReasonRecipientMismatch  VerificationReason = "recipient_mismatch"
	ReasonAmountMismatch     VerificationReason = "amount_mismatch"
)

// VerificationResult is the verdict of checking a claimed transaction against the ledger.
// Verified implies both recipient and amount matched the expectation.
type VerificationResult struct {
	Verified        bool               `json:"verified" dynamodbav:"verified"`
	TransactionHash string             `json:"transaction_hash" dynamodbav:"transaction_hash"`
	Amount          *decimal.Decimal   `json:"amount,omitempty" dynamodbav:"amount,omitempty"`
	Recipient       string             `json:"recipient,omitempty" dynamodbav:"recipient,omitempty"`
	Sender          string             `json:"sender,omitempty" dynamodbav:"sender,omitempty"`
	Memo            *string            `json:"memo,omitempty" dynamodbav:"memo,omitempty"`
	Timestamp       *time.Time         `json:"timestamp,omitempty" dynamodbav:"timestamp,omitempty"`
	Reason          VerificationReason `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	Error           string             `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// Definitive reports whether a rejection reflects a final ledger fact rather than
// the transaction not being visible yet.
func (r *VerificationResult) Definitive() bool {
	return !r.Verified && r.Reason != ReasonNotFound
}
