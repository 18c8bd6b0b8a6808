package fees

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	rate := d("0.02")

	tests := []struct {
		name     string
		policy   Policy
		gross    string
		merchant string
		fee      string
	}{
		{name: "Standard Divides Fee Out", policy: Standard, gross: "102.00", merchant: "100", fee: "2"},
		{name: "Donation Fee Is Additive", policy: Donation, gross: "50.00", merchant: "49", fee: "1"},
		{name: "Free Skips Fee", policy: Free, gross: "12.5", merchant: "12.5", fee: "0"},
		{name: "Standard Rounds To Ledger Precision", policy: Standard, gross: "1", merchant: "0.9803922", fee: "0.0196078"},
		{name: "Zero Amount", policy: Standard, gross: "0", merchant: "0", fee: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			split, err := Compute(tc.policy, d(tc.gross), rate)
			require.NoError(t, err)

			assert.True(t, d(tc.merchant).Equal(split.Merchant), "merchant: got %s", split.Merchant)
			assert.True(t, d(tc.fee).Equal(split.Fee), "fee: got %s", split.Fee)
			assert.True(t, split.Merchant.Add(split.Fee).Equal(d(tc.gross)))
			assert.Equal(t, tc.policy, split.Policy)
		})
	}
}

func TestPoliciesAreNotConflated(t *testing.T) {
	standard, err := Compute(Standard, d("50"), d("0.02"))
	require.NoError(t, err)
	donation, err := Compute(Donation, d("50"), d("0.02"))
	require.NoError(t, err)

	assert.False(t, standard.Fee.Equal(donation.Fee))
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute(Standard, d("-1"), d("0.02"))
	assert.Error(t, err)

	_, err = Compute(Standard, d("1"), d("1"))
	assert.Error(t, err)

	_, err = Compute(Policy("tiered"), d("1"), d("0.02"))
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}

func TestParsePolicy(t *testing.T) {
	for input, want := range map[string]Policy{
		"":         Standard,
		"fixed":    Standard,
		"Paid":     Standard,
		"standard": Standard,
		"donation": Donation,
		" free ":   Free,
	} {
		got, err := ParsePolicy(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParsePolicy("auction")
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}
