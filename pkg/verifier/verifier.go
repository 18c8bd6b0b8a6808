// Package verifier checks a claimed payment against what the ledger actually recorded.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chris/pi-settlement/pkg/ledger"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the absolute amount difference accepted as ledger precision noise.
var DefaultTolerance = decimal.New(1, -4)

// Expectation is what a transaction must show on the ledger to be accepted.
type Expectation struct {
	TxHash    string
	Recipient string
	Amount    decimal.Decimal
	Memo      string
}

// Verifier verifies transactions using a ledger reader.
type Verifier struct {
	Ledger    ledger.Reader
	Tolerance decimal.Decimal
	Logger    *slog.Logger
}

// New creates a new Verifier. A nil tolerance selects DefaultTolerance; an explicit
// zero requires exact amounts.
func New(reader ledger.Reader, tolerance *decimal.Decimal, logger *slog.Logger) *Verifier {
	tol := DefaultTolerance
	if tolerance != nil {
		tol = *tolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{Ledger: reader, Tolerance: tol, Logger: logger}
}

// Verify fetches the transaction and its operations and checks the first native
// payment operation against the expectation. A returned error means the ledger could
// not be read; the transaction must then be treated as unverified.
func (v *Verifier) Verify(ctx context.Context, exp Expectation) (*models.VerificationResult, error) {
	result := &models.VerificationResult{TransactionHash: exp.TxHash}

	tx, err := v.Ledger.GetTransaction(ctx, exp.TxHash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return reject(result, models.ReasonNotFound, "Transaction not found on blockchain"), nil
		}
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", exp.TxHash, err)
	}

	if !tx.Successful {
		return reject(result, models.ReasonUnsuccessful, "Transaction was not successful"), nil
	}

	ops, err := v.Ledger.GetOperations(ctx, exp.TxHash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return reject(result, models.ReasonNotFound, "Transaction not found on blockchain"), nil
		}
		return nil, fmt.Errorf("failed to fetch operations for %s: %w", exp.TxHash, err)
	}

	var payment *models.LedgerOperation
	for i := range ops {
		if ops[i].IsNativePayment() {
			payment = &ops[i]
			break
		}
	}
	if payment == nil {
		return reject(result, models.ReasonNoPaymentOperation, "No payment operation found"), nil
	}

	// Only the first native payment is authoritative.
	result.Recipient = payment.To
	result.Sender = payment.From
	amount := payment.Amount
	result.Amount = &amount

	if payment.To != exp.Recipient {
		return reject(result, models.ReasonRecipientMismatch,
			fmt.Sprintf("Recipient mismatch: expected %s, got %s", exp.Recipient, payment.To)), nil
	}

	if payment.Amount.Sub(exp.Amount).Abs().GreaterThan(v.Tolerance) {
		return reject(result, models.ReasonAmountMismatch,
			fmt.Sprintf("Amount mismatch: expected %s, got %s", exp.Amount.String(), payment.Amount.String())), nil
	}

	if exp.Memo != "" {
		if tx.Memo == nil || *tx.Memo != exp.Memo {
			observed := ""
			if tx.Memo != nil {
				observed = *tx.Memo
			}
			v.Logger.WarnContext(ctx, "memo mismatch", "tx_hash", exp.TxHash, "expected", exp.Memo, "actual", observed)
		}
	}

	timestamp := tx.CreatedAt
	result.Verified = true
	result.Memo = tx.Memo
	result.Timestamp = &timestamp
	return result, nil
}

func reject(result *models.VerificationResult, reason models.VerificationReason, msg string) *models.VerificationResult {
	result.Verified = false
	result.Reason = reason
	result.Error = msg
	return result
}
