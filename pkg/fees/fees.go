// Package fees splits a gross payment between the merchant and the platform.
package fees

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy selects how the platform fee is taken from a gross amount.
type Policy string

const (
	// Standard prices already include the fee: merchant = gross / (1 + rate).
	Standard Policy = "standard"
	// Donation takes the fee out of the donated amount: fee = gross * rate.
	Donation Policy = "donation"
	// Free items carry no fee.
	Free Policy = "free"
)

// Precision is the number of decimal places the ledger records.
const Precision = 7

// ErrUnknownPolicy is returned for pricing types with no fee policy.
var ErrUnknownPolicy = errors.New("unknown pricing type")

// Split is the result of a fee computation. Merchant + Fee == Gross.
type Split struct {
	Gross    decimal.Decimal
	Merchant decimal.Decimal
	Fee      decimal.Decimal
	Policy   Policy
}

// ParsePolicy maps a pricing type to its fee policy.
func ParsePolicy(pricingType string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(pricingType)) {
	case "", "standard", "fixed", "paid":
		return Standard, nil
	case "donation":
		return Donation, nil
	case "free":
		return Free, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, pricingType)
}

// Compute splits gross under policy at the given fee rate.
func Compute(policy Policy, gross, rate decimal.Decimal) (Split, error) {
	if gross.IsNegative() {
		return Split{}, fmt.Errorf("gross amount %s is negative", gross)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Split{}, fmt.Errorf("fee rate %s must be in [0, 1)", rate)
	}

	split := Split{Gross: gross, Policy: policy}
	switch policy {
	case Standard:
		split.Merchant = gross.DivRound(decimal.NewFromInt(1).Add(rate), Precision)
	case Donation:
		split.Merchant = gross.Sub(gross.Mul(rate).Round(Precision))
	case Free:
		split.Merchant = gross
	default:
		return Split{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
	split.Fee = gross.Sub(split.Merchant)
	return split, nil
}
