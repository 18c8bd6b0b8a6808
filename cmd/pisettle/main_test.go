package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	verifyReq settlement.VerifyRequest
	settleReq [2]string
	err       error
}

func (f *fakeService) SettleRetry(ctx context.Context, paymentID, txid string) (*models.Settlement, error) {
	f.settleReq = [2]string{paymentID, txid}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Settlement{PaymentId: paymentID, Txid: txid, Status: models.SETTLED}, nil
}

func (f *fakeService) Recover(ctx context.Context, paymentID string) (*models.Settlement, error) {
	return &models.Settlement{PaymentId: paymentID, Status: models.SETTLED}, nil
}

func (f *fakeService) Approve(ctx context.Context, paymentID string) (*models.Payment, error) {
	return &models.Payment{Identifier: paymentID}, nil
}

func (f *fakeService) VerifyTransaction(ctx context.Context, req settlement.VerifyRequest) (*settlement.VerifyOutcome, error) {
	f.verifyReq = req
	return &settlement.VerifyOutcome{Verified: true, OrderID: req.OrderID}, nil
}

func (f *fakeService) Settlement(ctx context.Context, paymentID string) (*models.Settlement, error) {
	return nil, f.err
}

func run(t *testing.T, svc *fakeService, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(func(ctx context.Context) (Service, error) { return svc, nil }, &out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSettleCommand(t *testing.T) {
	svc := &fakeService{}
	out, err := run(t, svc, "settle", "pay-1", "tx-1")
	require.NoError(t, err)

	assert.Equal(t, [2]string{"pay-1", "tx-1"}, svc.settleReq)
	var rec models.Settlement
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, models.SETTLED, rec.Status)
}

func TestSettleCommandError(t *testing.T) {
	svc := &fakeService{err: &settlement.Error{Kind: settlement.KindVerificationFailed, Message: "Transaction verification failed", Details: "Recipient mismatch"}}
	out, err := run(t, svc, "settle", "pay-1", "tx-1")
	require.Error(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "verification_failed", body["kind"])
	assert.Equal(t, "Recipient mismatch", body["details"])
}

func TestVerifyCommand(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "verify", "tx-1", "--amount", "3.5", "--recipient", "GWALLET", "--memo", "m", "--order", "order-1", "--release")
	require.NoError(t, err)

	assert.Equal(t, "tx-1", svc.verifyReq.TransactionHash)
	assert.Equal(t, "order-1", svc.verifyReq.OrderID)
	assert.Equal(t, "GWALLET", svc.verifyReq.ExpectedRecipient)
	assert.Equal(t, "m", svc.verifyReq.ExpectedMemo)
	assert.True(t, svc.verifyReq.AutoRelease)
	require.NotNil(t, svc.verifyReq.ExpectedAmount)
	assert.True(t, decimal.RequireFromString("3.5").Equal(*svc.verifyReq.ExpectedAmount))
}

func TestVerifyCommandRejectsBadAmount(t *testing.T) {
	_, err := run(t, &fakeService{}, "verify", "tx-1", "--amount", "lots")
	assert.ErrorContains(t, err, "invalid amount")
}

func TestArgsRequired(t *testing.T) {
	_, err := run(t, &fakeService{}, "recover")
	assert.Error(t, err)
}
